// Package navigation runs every navigation attempt through an ordered hook
// pipeline and commits the result to a per-session History.
//
// Each attempt passes through four stages, hooks running in registration
// order within a stage:
//
//	StageResolveStart -> StageGuard -> StageMeta -> commit -> StageAfter
//
// A hook answers with Next, RedirectTo or Abort. A redirect starts a new
// attempt at the redirect target, re-running every stage. StageAfter hooks
// run exactly once per navigation, whatever the outcome.
//
// The controller ships the hooks a starter application needs:
//
//	c, err := navigation.New(r,
//	    navigation.WithProgress(progress.Log(logger), progress.DefaultOptions()),
//	    navigation.WithAuthGuard(auth.SessionAccessor(), navigation.DefaultGuardConfig()),
//	    navigation.WithHeadSync("Console"),
//	)
//	h := c.NewHistory()
//	res := h.Navigate(ctx, router.Path("/backend"))
//
// Hooks never return errors. Redirects, aborts and unmatched paths are all
// outcomes reported on the Result.
package navigation
