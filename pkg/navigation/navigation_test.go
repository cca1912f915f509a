package navigation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/progress"
	"github.com/vango-dev/starter/pkg/router"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const appName = "Console"

var signinTags = []router.MetaTag{
	router.Tag("name", "description", "content", "Sign in to the console"),
	router.Tag("property", "og:title", "content", "Sign In"),
}

func fixtureRoutes() []router.Route {
	return []router.Route{
		{Path: "/", Redirect: router.RedirectName("auth-signin")},
		{
			Path: "/auth",
			View: "layouts/simple",
			Children: []router.Route{
				{
					Path:  "signin",
					Name:  "auth-signin",
					View:  "auth/signin",
					Query: map[string]string{"reset": "reset"},
					Meta:  router.Meta{Title: "Sign In", Guard: router.GuardGuest, MetaTags: signinTags},
				},
				{Path: "signup", Name: "auth-signup", View: "auth/signup"},
				{Path: "lock", Name: "auth-lock", View: "auth/lock"},
			},
		},
		{
			Path:     "/backend",
			View:     "layouts/backend",
			Redirect: router.RedirectPath("/backend/dashboard"),
			Children: []router.Route{
				{Path: "dashboard", Name: "backend-dashboard", View: "backend/dashboard", Meta: router.Meta{Title: "Dashboard", Guard: router.GuardAuth}},
			},
		},
		{Path: "/page-not-found", Name: "page-not-found", View: "errors/404", Meta: router.Meta{Title: "Page Not Found"}},
		{Path: "/*pathMatch", Redirect: router.RedirectPath("/page-not-found")},
	}
}

func newFixtureRouter(t *testing.T) *router.Router {
	t.Helper()
	r, err := router.New(fixtureRoutes())
	if err != nil {
		t.Fatalf("router.New() error: %v", err)
	}
	return r
}

func newController(t *testing.T, acc auth.Accessor, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithAuthGuard(acc, DefaultGuardConfig()),
		WithHeadSync(appName),
	}
	c, err := New(newFixtureRouter(t), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

type recordingIndicator struct {
	mu     sync.Mutex
	starts []progress.Event
	dones  []progress.Event
	opts   progress.Options
}

func (r *recordingIndicator) Configure(opts progress.Options) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
}

func (r *recordingIndicator) Start(_ context.Context, ev progress.Event) {
	r.mu.Lock()
	r.starts = append(r.starts, ev)
	r.mu.Unlock()
}

func (r *recordingIndicator) Done(_ context.Context, ev progress.Event) {
	r.mu.Lock()
	r.dones = append(r.dones, ev)
	r.mu.Unlock()
}

func TestGuestRouteWhileAuthenticatedRedirectsToDashboard(t *testing.T) {
	h := newController(t, auth.Static(true)).NewHistory()

	for _, target := range []router.Target{router.Path("/auth/signin"), router.Named("auth-signin", nil), router.Path("/")} {
		res := h.Navigate(context.Background(), target)
		if res.Outcome != OutcomeCommitted {
			t.Fatalf("%s: outcome = %s", target, res.Outcome)
		}
		if res.Name != "backend-dashboard" {
			t.Errorf("%s: committed %q, want backend-dashboard", target, res.Name)
		}
		if res.Title != "Dashboard - "+appName {
			t.Errorf("%s: title = %q", target, res.Title)
		}
	}
}

func TestAuthRouteWhileAnonymousRedirectsToLogin(t *testing.T) {
	h := newController(t, auth.Static(false)).NewHistory()

	res := h.Navigate(context.Background(), router.Path("/backend/dashboard"))
	if res.Outcome != OutcomeCommitted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Name != "auth-signin" {
		t.Errorf("committed %q, want auth-signin", res.Name)
	}
	if diff := cmp.Diff([]string{"/backend/dashboard"}, res.Redirects); diff != "" {
		t.Errorf("redirects mismatch (-want +got):\n%s", diff)
	}
	if res.Href != "#/auth/signin?reset=reset" {
		t.Errorf("Href = %q", res.Href)
	}
	if got := h.Current(); got == nil || got.Name != "auth-signin" {
		t.Errorf("Current() = %+v", got)
	}
}

func TestBackendRecordRedirectThenGuard(t *testing.T) {
	h := newController(t, auth.Static(false)).NewHistory()

	res := h.Navigate(context.Background(), router.Path("#/backend"))
	if res.Name != "auth-signin" {
		t.Fatalf("committed %q, want auth-signin", res.Name)
	}
	if diff := cmp.Diff([]string{"/backend", "/backend/dashboard"}, res.Redirects); diff != "" {
		t.Errorf("redirects mismatch (-want +got):\n%s", diff)
	}
}

func TestUnguardedRouteDoesNotConsultAccessor(t *testing.T) {
	calls := 0
	acc := auth.AccessorFunc(func(context.Context) bool {
		calls++
		return true
	})
	h := newController(t, acc).NewHistory()

	res := h.Navigate(context.Background(), router.Path("/auth/lock"))
	if res.Outcome != OutcomeCommitted || res.Path != "/auth/lock" {
		t.Fatalf("result = %s %s", res.Outcome, res.Path)
	}
	if len(res.Redirects) != 0 {
		t.Errorf("redirects = %v, want none", res.Redirects)
	}
	if calls != 0 {
		t.Errorf("accessor called %d times for an unguarded route", calls)
	}
}

func TestAccessorReadFreshEachNavigation(t *testing.T) {
	authenticated := false
	acc := auth.AccessorFunc(func(context.Context) bool { return authenticated })
	h := newController(t, acc).NewHistory()

	if res := h.Navigate(context.Background(), router.Path("/backend/dashboard")); res.Name != "auth-signin" {
		t.Fatalf("anonymous: committed %q", res.Name)
	}
	authenticated = true
	if res := h.Navigate(context.Background(), router.Path("/backend/dashboard")); res.Name != "backend-dashboard" {
		t.Fatalf("authenticated: committed %q", res.Name)
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		path  string
		title string
	}{
		{path: "/auth/lock", title: appName},
		{path: "/auth/signup", title: appName},
		{path: "/backend/dashboard", title: "Sign In - " + appName},
		{path: "/page-not-found", title: "Page Not Found - " + appName},
		{path: "/unknown/path", title: "Page Not Found - " + appName},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h := newController(t, auth.Static(false)).NewHistory()
			res := h.Navigate(context.Background(), router.Path(tt.path))
			if res.Title != tt.title {
				t.Errorf("title = %q, want %q", res.Title, tt.title)
			}
			if got := h.Head().Title(); got != tt.title {
				t.Errorf("history head title = %q, want %q", got, tt.title)
			}
		})
	}
}

func TestUnknownPathLandsOnNotFound(t *testing.T) {
	h := newController(t, auth.Static(false)).NewHistory()

	res := h.Navigate(context.Background(), router.Path("/unknown/path"))
	if res.Name != "page-not-found" {
		t.Fatalf("committed %q, want page-not-found", res.Name)
	}
	if res.Title != "Page Not Found - "+appName {
		t.Errorf("title = %q", res.Title)
	}
	if diff := cmp.Diff([]string{"/unknown/path"}, res.Redirects); diff != "" {
		t.Errorf("redirects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"errors/404"}, res.Views); diff != "" {
		t.Errorf("views mismatch (-want +got):\n%s", diff)
	}
}

func TestMetaReconcileIsIdempotent(t *testing.T) {
	h := newController(t, auth.Static(false)).NewHistory()

	first := h.Navigate(context.Background(), router.Path("/auth/signin"))
	second := h.Navigate(context.Background(), router.Path("/auth/signin"))

	if diff := cmp.Diff(signinTags, first.Meta); diff != "" {
		t.Errorf("first meta mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first.Meta, second.Meta); diff != "" {
		t.Errorf("meta changed on repeat navigation (-first +second):\n%s", diff)
	}
	if n := len(h.Head().Controlled()); n != len(signinTags) {
		t.Errorf("controlled elements = %d, want %d", n, len(signinTags))
	}

	// A route without tags clears the stale ones.
	third := h.Navigate(context.Background(), router.Path("/auth/lock"))
	if len(third.Meta) != 0 || len(h.Head().Controlled()) != 0 {
		t.Errorf("stale meta left: %v", third.Meta)
	}
}

func TestNewRejectsMissingGuardTargets(t *testing.T) {
	r := newFixtureRouter(t)

	_, err := New(r, WithAuthGuard(auth.Static(false), GuardConfig{Dashboard: "dashboard", Login: "login"}))
	if !errors.Is(err, ErrUnknownRoute) {
		t.Fatalf("error = %v, want ErrUnknownRoute", err)
	}

	if _, err := New(r, WithAuthGuard(auth.Static(false), DefaultGuardConfig())); err != nil {
		t.Fatalf("default guard config rejected: %v", err)
	}
}

func TestHookRedirectLoopTerminates(t *testing.T) {
	ind := &recordingIndicator{}
	pingPong := BeforeEach("ping-pong", func(_ context.Context, nav *Navigation) Decision {
		if nav.To.Path == "/auth/lock" {
			return RedirectTo(router.Path("/auth/signup"))
		}
		return RedirectTo(router.Path("/auth/lock"))
	})
	c := newController(t, auth.Static(false), pingPong, WithMaxRedirects(4), WithProgress(ind, progress.DefaultOptions()))
	h := c.NewHistory()

	res := h.Navigate(context.Background(), router.Path("/auth/lock"))
	if res.Outcome != OutcomeRedirectLoop {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeRedirectLoop)
	}
	if h.Current() != nil {
		t.Error("redirect loop should not commit")
	}
	if len(ind.starts) != 5 {
		t.Errorf("progress starts = %d, want 5", len(ind.starts))
	}
	if len(ind.dones) != 1 || ind.dones[0].Outcome != string(OutcomeRedirectLoop) {
		t.Errorf("progress dones = %+v", ind.dones)
	}
}

func TestRecordRedirectLoopIsAnOutcome(t *testing.T) {
	r, err := router.New([]router.Route{
		{Path: "/a", Redirect: router.RedirectPath("/b")},
		{Path: "/b", Redirect: router.RedirectPath("/a")},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(r)
	if err != nil {
		t.Fatal(err)
	}
	res := c.NewHistory().Navigate(context.Background(), router.Path("/a"))
	if res.Outcome != OutcomeRedirectLoop {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Err != nil {
		t.Errorf("redirect loop should not carry an error, got %v", res.Err)
	}
}

func TestAbortLeavesHistoryUntouched(t *testing.T) {
	block := BeforeCommit("block-lock", func(_ context.Context, nav *Navigation) Decision {
		if nav.To.Path == "/auth/lock" {
			return Abort()
		}
		return Next()
	})
	h := newController(t, auth.Static(false), block).NewHistory()

	first := h.Navigate(context.Background(), router.Path("/page-not-found"))
	if !first.Committed() {
		t.Fatalf("outcome = %s", first.Outcome)
	}

	res := h.Navigate(context.Background(), router.Path("/auth/lock"))
	if res.Outcome != OutcomeAborted {
		t.Fatalf("outcome = %s, want aborted", res.Outcome)
	}
	if got := h.Current().Path; got != "/page-not-found" {
		t.Errorf("Current() = %s, want /page-not-found", got)
	}
	if res.Title != "Page Not Found - "+appName {
		t.Errorf("title after abort = %q", res.Title)
	}
}

func TestUnresolvableTargetAborts(t *testing.T) {
	ind := &recordingIndicator{}
	h := newController(t, auth.Static(false), WithProgress(ind, progress.DefaultOptions())).NewHistory()

	res := h.Navigate(context.Background(), router.Named("missing", nil))
	if res.Outcome != OutcomeAborted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !errors.Is(res.Err, router.ErrUnknownRoute) || res.Error == "" {
		t.Errorf("err = %v (%q)", res.Err, res.Error)
	}
	if len(ind.starts) != 0 || len(ind.dones) != 1 {
		t.Errorf("starts=%d dones=%d, want 0 and 1", len(ind.starts), len(ind.dones))
	}
}

func TestCancelledContextAborts(t *testing.T) {
	h := newController(t, auth.Static(false)).NewHistory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.Navigate(ctx, router.Path("/auth/lock"))
	if res.Outcome != OutcomeAborted || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("result = %s, %v", res.Outcome, res.Err)
	}
}

func TestLaterNavigationSupersedesEarlier(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	slow := BeforeCommit("slow-lock", func(_ context.Context, nav *Navigation) Decision {
		if nav.To.Path == "/auth/lock" {
			close(entered)
			<-release
		}
		return Next()
	})
	h := newController(t, auth.Static(false), slow).NewHistory()

	done := make(chan Result)
	go func() {
		done <- h.Navigate(context.Background(), router.Path("/auth/lock"))
	}()
	<-entered

	later := h.Navigate(context.Background(), router.Path("/auth/signup"))
	close(release)
	earlier := <-done

	if later.Outcome != OutcomeCommitted {
		t.Errorf("later outcome = %s", later.Outcome)
	}
	if earlier.Outcome != OutcomeSuperseded {
		t.Errorf("earlier outcome = %s, want superseded", earlier.Outcome)
	}
	if got := h.Current().Path; got != "/auth/signup" {
		t.Errorf("Current() = %s, want /auth/signup", got)
	}
}

func TestHooksRunInStageOrder(t *testing.T) {
	var order []string
	record := func(name string) HookFunc {
		return func(context.Context, *Navigation) Decision {
			order = append(order, name)
			return Next()
		}
	}
	r := newFixtureRouter(t)
	c, err := New(r,
		AfterEach("after", func(context.Context, *Navigation) { order = append(order, "after") }),
		BeforeCommit("meta", record("meta")),
		BeforeEach("guard-1", record("guard-1")),
		BeforeEach("guard-2", record("guard-2")),
		BeforeResolve("start", record("start")),
	)
	if err != nil {
		t.Fatal(err)
	}

	c.NewHistory().Navigate(context.Background(), router.Path("/auth/lock"))

	want := []string{"start", "guard-1", "guard-2", "meta", "after"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}

	var names []string
	for _, h := range c.Hooks() {
		names = append(names, h.Name)
	}
	if diff := cmp.Diff([]string{"start", "guard-1", "guard-2", "meta", "after"}, names); diff != "" {
		t.Errorf("Hooks() mismatch (-want +got):\n%s", diff)
	}
}

func TestProgressSignalsPerAttempt(t *testing.T) {
	ind := &recordingIndicator{}
	h := newController(t, auth.Static(false), WithProgress(ind, progress.Options{ShowSpinner: false})).NewHistory()

	res := h.Navigate(context.Background(), router.Path("/backend/dashboard"))
	if !res.Committed() {
		t.Fatalf("outcome = %s", res.Outcome)
	}

	if len(ind.starts) != 2 {
		t.Fatalf("starts = %d, want 2", len(ind.starts))
	}
	if ind.starts[0].Attempt != 0 || ind.starts[1].Attempt != 1 {
		t.Errorf("attempts = %d, %d", ind.starts[0].Attempt, ind.starts[1].Attempt)
	}
	if ind.starts[0].ID != res.ID || ind.starts[1].ID != res.ID {
		t.Error("events should carry the navigation ID")
	}
	if len(ind.dones) != 1 {
		t.Fatalf("dones = %d, want 1", len(ind.dones))
	}
	done := ind.dones[0]
	if done.Outcome != "committed" || done.Route != "auth-signin" {
		t.Errorf("done = %+v", done)
	}
	if ind.opts.ShowSpinner {
		t.Error("indicator should be configured with the spinner off")
	}
}

func TestCommittedScrollsToOrigin(t *testing.T) {
	h := newController(t, auth.Static(false)).NewHistory()
	res := h.Navigate(context.Background(), router.Path("/auth/lock"))
	if res.Scroll != (router.Position{}) {
		t.Errorf("scroll = %+v, want origin", res.Scroll)
	}
}

func TestTitleHelper(t *testing.T) {
	if got := Title(nil, appName); got != appName {
		t.Errorf("Title(nil) = %q", got)
	}
}

func TestDecisionString(t *testing.T) {
	tests := map[string]Decision{
		"next":                     Next(),
		"abort":                    Abort(),
		"redirect(/auth/lock)":     RedirectTo(router.Path("/auth/lock")),
		"redirect(name:auth-lock)": RedirectTo(router.Named("auth-lock", nil)),
	}
	for want, d := range tests {
		if got := d.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
