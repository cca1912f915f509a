package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/vango-dev/starter/pkg/head"
	"github.com/vango-dev/starter/pkg/router"
)

// Result reports how a navigation ended and the state it left behind.
type Result struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`

	// Path, Name and Href describe the final location of the navigation,
	// committed or not. They are empty when the target never resolved.
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
	Href string `json:"href,omitempty"`

	// Redirects lists the paths redirected away from, record redirects
	// included, in order.
	Redirects []string `json:"redirects,omitempty"`

	// Views are the matched views, outermost first.
	Views []string `json:"views,omitempty"`

	// Title and Meta are the History's document state after the navigation.
	Title string           `json:"title"`
	Meta  []router.MetaTag `json:"meta,omitempty"`

	Scroll router.Position `json:"scroll"`

	// Error explains an aborted navigation whose target did not resolve.
	Error string `json:"error,omitempty"`

	Location *router.Location `json:"-"`
	Err      error            `json:"-"`
}

// Committed reports whether the navigation committed.
func (r Result) Committed() bool {
	return r.Outcome == OutcomeCommitted
}

// History is the navigation state of one browser session: the committed
// location and head document. Navigate may be called concurrently; a
// navigation that has not committed when a later one starts is superseded.
type History struct {
	c *Controller

	gen atomic.Uint64

	mu      sync.Mutex
	current *router.Location
	doc     *head.Document
}

// NewHistory returns an empty history whose document is titled with the
// application name.
func (c *Controller) NewHistory() *History {
	return c.NewHistoryWithHead(head.New(c.appName))
}

// NewHistoryWithHead returns an empty history over doc.
func (c *Controller) NewHistoryWithHead(doc *head.Document) *History {
	if doc == nil {
		doc = head.New(c.appName)
	}
	return &History{c: c, doc: doc}
}

// Current returns the committed location, or nil before the first commit.
func (h *History) Current() *router.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Head returns a copy of the committed document.
func (h *History) Head() *head.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.Clone()
}

func (h *History) snapshot() (*router.Location, *head.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.doc.Clone()
}

// Navigate runs a navigation to target and commits it unless a hook
// redirects away, aborts, or a later navigation supersedes it.
func (h *History) Navigate(ctx context.Context, target router.Target) Result {
	c := h.c
	gen := h.gen.Inc()
	from, _ := h.snapshot()
	nav := &Navigation{
		ID:        uuid.NewString(),
		From:      from,
		StartedAt: time.Now(),
	}
	logger := c.logger.With("nav_id", nav.ID)

	var (
		outcome Outcome
		err     error
	)
	for attempt := 0; ; attempt++ {
		if attempt > c.maxRedirects {
			outcome = OutcomeRedirectLoop
			logger.Warn("navigation redirect loop", "target", target.String(), "redirects", len(nav.Redirects))
			break
		}
		if h.gen.Load() != gen {
			outcome = OutcomeSuperseded
			break
		}

		loc, rerr := c.router.Resolve(target)
		if rerr != nil {
			if errors.Is(rerr, router.ErrRedirectLoop) {
				outcome = OutcomeRedirectLoop
				logger.Warn("route redirect loop", "target", target.String())
			} else {
				outcome = OutcomeAborted
				err = rerr
				logger.Debug("navigation target did not resolve", "target", target.String(), "error", rerr)
			}
			break
		}
		_, doc := h.snapshot()
		nav.To = loc
		nav.Attempt = attempt
		nav.Head = doc

		d, by := h.runAttempt(ctx, nav)
		if t, ok := d.Redirect(); ok {
			logger.Debug("navigation redirected", "from", loc.Path, "to", t.String(), "hook", by)
			nav.Redirects = append(nav.Redirects, loc)
			target = t
			continue
		}
		if d.IsAbort() {
			outcome = OutcomeAborted
			logger.Debug("navigation aborted", "path", loc.Path, "hook", by)
			break
		}
		if cerr := ctx.Err(); cerr != nil {
			outcome = OutcomeAborted
			err = cerr
			break
		}
		outcome = h.commit(gen, loc, nav.Head)
		break
	}

	nav.Outcome = outcome
	c.runAfter(ctx, nav)

	res := h.result(nav, err)
	logger.Debug("navigation finished",
		"outcome", res.Outcome,
		"path", res.Path,
		"attempts", nav.Attempt+1,
		"duration", time.Since(nav.StartedAt),
	)
	return res
}

func (h *History) runAttempt(ctx context.Context, nav *Navigation) (Decision, string) {
	for _, stage := range []Stage{StageResolveStart, StageGuard, StageMeta} {
		if d, by := h.c.runStage(ctx, stage, nav); !d.IsNext() {
			return d, by
		}
	}
	return Next(), ""
}

func (h *History) commit(gen uint64, loc *router.Location, doc *head.Document) Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gen.Load() != gen {
		return OutcomeSuperseded
	}
	h.current = loc
	h.doc = doc
	return OutcomeCommitted
}

func (h *History) result(nav *Navigation, err error) Result {
	_, doc := h.snapshot()
	res := Result{
		ID:      nav.ID,
		Outcome: nav.Outcome,
		Title:   doc.Title(),
		Meta:    metaTags(doc.Controlled()),
		Err:     err,
	}
	if err != nil {
		res.Error = err.Error()
	}

	for _, loc := range nav.Redirects {
		res.Redirects = append(res.Redirects, redirectTrail(loc)...)
		res.Redirects = append(res.Redirects, loc.Path)
	}
	if loc := nav.To; loc != nil {
		res.Redirects = append(res.Redirects, redirectTrail(loc)...)
		res.Location = loc
		res.Path = loc.Path
		res.Name = loc.Name
		res.Href = h.c.router.Href(loc)
		res.Views = loc.Views()
	}
	if res.Committed() {
		res.Scroll = h.c.router.Scroll(nav.To, nav.From)
	}
	return res
}

// redirectTrail returns the paths of the record redirects that led to loc,
// oldest first.
func redirectTrail(loc *router.Location) []string {
	var trail []string
	for from := loc.RedirectedFrom; from != nil; from = from.RedirectedFrom {
		trail = append(trail, from.Path)
	}
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}
	return trail
}
