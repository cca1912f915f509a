package navigation

import (
	"context"

	"golang.org/x/net/html"

	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/head"
	"github.com/vango-dev/starter/pkg/progress"
	"github.com/vango-dev/starter/pkg/router"
)

// ProgressStart signals "loading started" for every attempt.
func ProgressStart(ind progress.Indicator) Hook {
	return Hook{Name: "progress-start", Stage: StageResolveStart, Run: func(ctx context.Context, nav *Navigation) Decision {
		ind.Start(ctx, progress.Event{
			ID:        nav.ID,
			Path:      nav.To.Path,
			Route:     nav.To.Name,
			Attempt:   nav.Attempt,
			StartedAt: nav.StartedAt,
		})
		return Next()
	}}
}

// ProgressDone signals "loading finished" once per navigation.
func ProgressDone(ind progress.Indicator) Hook {
	return Hook{Name: "progress-done", Stage: StageAfter, Run: func(ctx context.Context, nav *Navigation) Decision {
		ev := progress.Event{
			ID:        nav.ID,
			Attempt:   nav.Attempt,
			StartedAt: nav.StartedAt,
			Outcome:   string(nav.Outcome),
		}
		if nav.To != nil {
			ev.Path = nav.To.Path
			ev.Route = nav.To.Name
		}
		ind.Done(ctx, ev)
		return Next()
	}}
}

// AuthGuard redirects authenticated users away from guest-only routes and
// anonymous users away from auth-only routes. Only the matched records' own
// guards are consulted. The flag is read from acc on every evaluation that
// needs it.
func AuthGuard(acc auth.Accessor, cfg GuardConfig) Hook {
	return Hook{Name: "auth-guard", Stage: StageGuard, Run: func(ctx context.Context, nav *Navigation) Decision {
		guest := chainHasGuard(nav.To, router.GuardGuest)
		needsAuth := chainHasGuard(nav.To, router.GuardAuth)
		if !guest && !needsAuth {
			return Next()
		}

		authenticated := acc.Authenticated(ctx)
		switch {
		case guest && authenticated:
			return RedirectTo(router.Named(cfg.Dashboard, nil))
		case needsAuth && !authenticated:
			return RedirectTo(router.Named(cfg.Login, nil))
		default:
			return Next()
		}
	}}
}

func chainHasGuard(loc *router.Location, g router.Guard) bool {
	if loc == nil {
		return false
	}
	for _, rec := range loc.Matched {
		if rec.Meta.Guard == g {
			return true
		}
	}
	return false
}

// HeadSync sets the staged document title to "<title> - <appName>" from the
// innermost titled record (bare appName when none has one) and reconciles
// injected meta elements with the innermost record carrying meta tags.
// Previously injected elements are always cleared.
func HeadSync(appName string) Hook {
	return Hook{Name: "head-sync", Stage: StageMeta, Run: func(ctx context.Context, nav *Navigation) Decision {
		if nav.Head == nil {
			return Next()
		}
		nav.Head.SetTitle(Title(nav.To, appName))
		nav.Head.Reconcile(headTags(nearestMetaTags(nav.To)))
		return Next()
	}}
}

// Title returns the document title for loc.
func Title(loc *router.Location, appName string) string {
	if loc != nil {
		for i := len(loc.Matched) - 1; i >= 0; i-- {
			if t := loc.Matched[i].Meta.Title; t != "" {
				return t + " - " + appName
			}
		}
	}
	return appName
}

func nearestMetaTags(loc *router.Location) []router.MetaTag {
	if loc == nil {
		return nil
	}
	for i := len(loc.Matched) - 1; i >= 0; i-- {
		if tags := loc.Matched[i].Meta.MetaTags; len(tags) > 0 {
			return tags
		}
	}
	return nil
}

func headTags(tags []router.MetaTag) []head.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]head.Tag, 0, len(tags))
	for _, t := range tags {
		tag := make(head.Tag, 0, len(t))
		for _, a := range t {
			tag = append(tag, html.Attribute{Key: a.Key, Val: a.Val})
		}
		out = append(out, tag)
	}
	return out
}

func metaTags(tags []head.Tag) []router.MetaTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]router.MetaTag, 0, len(tags))
	for _, t := range tags {
		tag := make(router.MetaTag, 0, len(t))
		for _, a := range t {
			tag = append(tag, router.Attr{Key: a.Key, Val: a.Val})
		}
		out = append(out, tag)
	}
	return out
}
