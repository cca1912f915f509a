package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/vango-dev/starter/pkg/head"
	"github.com/vango-dev/starter/pkg/router"
)

// Stage is a fixed point in the navigation lifecycle.
type Stage int

const (
	// StageResolveStart runs when an attempt begins resolving.
	StageResolveStart Stage = iota
	// StageGuard runs before commit and decides access.
	StageGuard
	// StageMeta runs after the guards, before commit.
	StageMeta
	// StageAfter runs once the navigation has finished. Decisions are ignored.
	StageAfter

	numStages
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageResolveStart:
		return "resolve-start"
	case StageGuard:
		return "guard"
	case StageMeta:
		return "meta"
	case StageAfter:
		return "after"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type decisionKind int

const (
	decideNext decisionKind = iota
	decideRedirect
	decideAbort
)

// Decision is a hook's answer for the current attempt.
type Decision struct {
	kind   decisionKind
	target router.Target
}

// Next lets the attempt continue unmodified.
func Next() Decision { return Decision{kind: decideNext} }

// RedirectTo abandons the attempt and starts a new one at target.
func RedirectTo(target router.Target) Decision {
	return Decision{kind: decideRedirect, target: target}
}

// Abort stops the navigation without committing.
func Abort() Decision { return Decision{kind: decideAbort} }

// IsNext reports whether the decision lets the attempt continue.
func (d Decision) IsNext() bool { return d.kind == decideNext }

// Redirect returns the redirect target, if the decision is a redirect.
func (d Decision) Redirect() (router.Target, bool) {
	return d.target, d.kind == decideRedirect
}

// IsAbort reports whether the decision aborts the navigation.
func (d Decision) IsAbort() bool { return d.kind == decideAbort }

// String renders the decision for logs.
func (d Decision) String() string {
	switch d.kind {
	case decideRedirect:
		return "redirect(" + d.target.String() + ")"
	case decideAbort:
		return "abort"
	default:
		return "next"
	}
}

// Navigation is the state shared by hooks during one navigation.
type Navigation struct {
	// ID identifies the navigation across its attempts.
	ID string

	// To is the location of the current attempt, record redirects applied.
	To *router.Location

	// From is the committed location when the navigation began (nil at first).
	From *router.Location

	// Attempt counts guard redirects; the first attempt is 0.
	Attempt int

	// StartedAt is when the first attempt began.
	StartedAt time.Time

	// Redirects lists the locations redirected away from by hooks, in order.
	Redirects []*router.Location

	// Head is the staged document. Meta hooks edit it; it replaces the
	// History's document only on commit.
	Head *head.Document

	// Outcome is set before StageAfter hooks run.
	Outcome Outcome
}

// Hook is a named callback bound to a stage.
type Hook struct {
	Name  string
	Stage Stage
	Run   HookFunc
}

// HookFunc is the hook body.
type HookFunc func(ctx context.Context, nav *Navigation) Decision

// AfterFunc is the body of a StageAfter hook.
type AfterFunc func(ctx context.Context, nav *Navigation)
