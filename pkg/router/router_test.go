package router

import (
	"errors"
	"net/url"
	"testing"

	"github.com/vango-dev/starter/pkg/routepath"
)

func testRoutes() []Route {
	return []Route{
		{Path: "/", Redirect: RedirectName("signin")},
		{
			Path: "/auth",
			View: "layouts/simple",
			Children: []Route{
				{
					Path:  "signin",
					Name:  "signin",
					View:  "auth/signin",
					Query: map[string]string{"reset": "reset"},
					Meta:  Meta{Title: "Sign In", Guard: GuardGuest},
				},
				{Path: "lock", Name: "lock", View: "auth/lock"},
			},
		},
		{
			Path:     "/backend",
			View:     "layouts/backend",
			Redirect: RedirectPath("/backend/dashboard"),
			Children: []Route{
				{Path: "dashboard", Name: "dashboard", View: "backend/dashboard", Meta: Meta{Title: "Dashboard", Guard: GuardAuth}},
				{Path: "projects/:id", Name: "project", View: "backend/project"},
				{Path: "projects/new", Name: "project-new", View: "backend/project-new"},
			},
		},
		{Path: "/page-not-found", Name: "not-found", View: "errors/404", Meta: Meta{Title: "Page Not Found"}},
		{Path: "/*pathMatch", Redirect: RedirectPath("/page-not-found")},
	}
}

func newTestRouter(t *testing.T, opts ...Option) *Router {
	t.Helper()
	r, err := New(testRoutes(), opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestRouterMatchStatic(t *testing.T) {
	r := newTestRouter(t)

	loc, ok := r.Match("/auth/signin")
	if !ok {
		t.Fatal("expected match for /auth/signin")
	}
	if loc.Name != "signin" {
		t.Errorf("Name = %q, want %q", loc.Name, "signin")
	}
	if len(loc.Matched) != 2 {
		t.Fatalf("len(Matched) = %d, want 2", len(loc.Matched))
	}
	if loc.Matched[0].Path != "/auth" || loc.Matched[1].Path != "/auth/signin" {
		t.Errorf("Matched = [%s %s], want [/auth /auth/signin]", loc.Matched[0].Path, loc.Matched[1].Path)
	}
}

func TestRouterMatchParams(t *testing.T) {
	r := newTestRouter(t)

	loc, ok := r.Match("/backend/projects/42")
	if !ok {
		t.Fatal("expected match")
	}
	if loc.Params["id"] != "42" {
		t.Errorf("params[id] = %q, want %q", loc.Params["id"], "42")
	}
}

func TestRouterStaticBeatsParam(t *testing.T) {
	r := newTestRouter(t)

	loc, ok := r.Match("/backend/projects/new")
	if !ok {
		t.Fatal("expected match")
	}
	if loc.Name != "project-new" {
		t.Errorf("Name = %q, want %q", loc.Name, "project-new")
	}
}

func TestRouterMatchCatchAll(t *testing.T) {
	r := newTestRouter(t)

	loc, ok := r.Match("/unknown/path")
	if !ok {
		t.Fatal("expected catch-all match")
	}
	if loc.Params["pathMatch"] != "unknown/path" {
		t.Errorf("params[pathMatch] = %q, want %q", loc.Params["pathMatch"], "unknown/path")
	}
}

func TestRouterMatchLayoutRecord(t *testing.T) {
	r := newTestRouter(t)

	loc, ok := r.Match("/auth")
	if !ok {
		t.Fatal("expected /auth to match its layout record")
	}
	if got := loc.Views(); len(got) != 1 || got[0] != "layouts/simple" {
		t.Errorf("Views() = %v", got)
	}
}

func TestRouterNoMatchWithoutCatchAll(t *testing.T) {
	r, err := New([]Route{{Path: "/a", View: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Match("/b"); ok {
		t.Error("expected no match")
	}
	if _, err := r.Resolve(Path("/b")); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Resolve() error = %v, want ErrNoMatch", err)
	}
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New([]Route{
		{Path: "/a", Name: "x", View: "a"},
		{Path: "/b", Name: "x", View: "b"},
	})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("error = %v, want ErrDuplicateName", err)
	}
}

func TestNewRejectsLeafWithoutView(t *testing.T) {
	_, err := New([]Route{{Path: "/a", Name: "a"}})
	if !errors.Is(err, ErrMissingView) {
		t.Fatalf("error = %v, want ErrMissingView", err)
	}
}

func TestResolveFollowsRedirects(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name     string
		target   Target
		wantPath string
		wantFrom string
	}{
		{name: "root redirects by name", target: Path("/"), wantPath: "/auth/signin", wantFrom: "/"},
		{name: "backend redirects by path", target: Path("/backend"), wantPath: "/backend/dashboard", wantFrom: "/backend"},
		{name: "unknown goes to not found", target: Path("/unknown/path"), wantPath: "/page-not-found", wantFrom: "/unknown/path"},
		{name: "no redirect", target: Path("/auth/lock"), wantPath: "/auth/lock"},
		{name: "query string", target: Path("/auth/lock?x=1"), wantPath: "/auth/lock"},
		{name: "hash href", target: Path("#/backend"), wantPath: "/backend/dashboard", wantFrom: "/backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := r.Resolve(tt.target)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if loc.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", loc.Path, tt.wantPath)
			}
			from := ""
			if loc.RedirectedFrom != nil {
				from = loc.RedirectedFrom.Path
			}
			if from != tt.wantFrom {
				t.Errorf("RedirectedFrom = %q, want %q", from, tt.wantFrom)
			}
		})
	}
}

func TestNames(t *testing.T) {
	r := newTestRouter(t)
	want := []string{"signin", "lock", "dashboard", "project", "project-new", "not-found"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveNamed(t *testing.T) {
	r := newTestRouter(t)

	loc, err := r.Resolve(Named("project", map[string]string{"id": "a b"}))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if loc.Path != "/backend/projects/a%20b" {
		t.Errorf("Path = %q", loc.Path)
	}
	if loc.Params["id"] != "a b" {
		t.Errorf("params[id] = %q, want %q", loc.Params["id"], "a b")
	}

	if _, err := r.Resolve(Named("project", nil)); !errors.Is(err, ErrMissingParam) {
		t.Errorf("error = %v, want ErrMissingParam", err)
	}
	if _, err := r.Resolve(Named("login", nil)); !errors.Is(err, ErrUnknownRoute) {
		t.Errorf("error = %v, want ErrUnknownRoute", err)
	}
}

func TestResolveAppliesQueryDefaults(t *testing.T) {
	r := newTestRouter(t)

	loc, err := r.Resolve(Path("/auth/signin"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Query.Get("reset") != "reset" {
		t.Errorf("query reset = %q, want default", loc.Query.Get("reset"))
	}

	loc, err = r.Resolve(Target{Name: "signin", Query: url.Values{"reset": {"done"}}})
	if err != nil {
		t.Fatal(err)
	}
	if loc.Query.Get("reset") != "done" {
		t.Errorf("query reset = %q, want explicit value", loc.Query.Get("reset"))
	}
}

func TestResolveRedirectLoop(t *testing.T) {
	r, err := New([]Route{
		{Path: "/a", Redirect: RedirectPath("/b")},
		{Path: "/b", Redirect: RedirectPath("/a")},
	}, WithMaxRedirects(3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(Path("/a")); !errors.Is(err, ErrRedirectLoop) {
		t.Fatalf("error = %v, want ErrRedirectLoop", err)
	}
}

func TestResolveRejectsAbsoluteURL(t *testing.T) {
	r := newTestRouter(t)
	if _, err := r.Resolve(Path("https://evil.example/")); err == nil {
		t.Fatal("expected error for absolute URL")
	}
}

func TestResolveMalformedPathSkipsCatchAll(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		path string
		want error
	}{
		{path: "/a/../../x", want: routepath.ErrPathEscapesRoot},
		{path: "/ok/%zz", want: routepath.ErrInvalidPercentEscape},
		{path: "#/a/../../x", want: routepath.ErrPathEscapesRoot},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			loc, err := r.Resolve(Path(tt.path))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.want)
			}
			if loc != nil {
				t.Errorf("Resolve() location = %+v, want nil", loc)
			}
		})
	}
}

func TestHref(t *testing.T) {
	loc := &Location{Path: "/backend/dashboard"}

	hash := newTestRouter(t)
	if got := hash.Href(loc); got != "#/backend/dashboard" {
		t.Errorf("hash Href() = %q", got)
	}

	plain := newTestRouter(t, WithHistory(HistoryPath))
	if got := plain.Href(loc); got != "/backend/dashboard" {
		t.Errorf("path Href() = %q", got)
	}
}

func TestLinkClass(t *testing.T) {
	r := newTestRouter(t, WithLinkActiveClass("open"), WithLinkExactActiveClass("current"))

	current, err := r.Resolve(Path("/backend/dashboard"))
	if err != nil {
		t.Fatal(err)
	}

	if got := r.LinkClass(current, Named("dashboard", nil)); got != "open current" {
		t.Errorf("exact link class = %q, want %q", got, "open current")
	}
	if got := r.LinkClass(current, Named("lock", nil)); got != "" {
		t.Errorf("unrelated link class = %q, want empty", got)
	}

	layout, _ := r.Match("/backend/projects/1")
	if got := r.LinkClass(layout, Named("project", map[string]string{"id": "2"})); got != "" {
		t.Errorf("other params link class = %q, want empty", got)
	}
}

func TestLinkClassDefaultsCollapse(t *testing.T) {
	r := newTestRouter(t)

	current, err := r.Resolve(Path("/auth/lock"))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.LinkClass(current, Path("/auth/lock")); got != "active" {
		t.Errorf("LinkClass() = %q, want %q", got, "active")
	}
}

func TestScrollDefaultsToOrigin(t *testing.T) {
	r := newTestRouter(t)
	if got := r.Scroll(&Location{Path: "/a"}, &Location{Path: "/b"}); got != (Position{}) {
		t.Errorf("Scroll() = %+v, want origin", got)
	}
}

func TestGuardText(t *testing.T) {
	for _, g := range []Guard{GuardNone, GuardGuest, GuardAuth} {
		text, err := g.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Guard
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error: %v", text, err)
		}
		if back != g {
			t.Errorf("round trip %v -> %q -> %v", g, text, back)
		}
	}
	if _, err := ParseGuard("admin"); err == nil {
		t.Error("expected error for unknown guard")
	}
}

func TestParseHistory(t *testing.T) {
	if h, err := ParseHistory("path"); err != nil || h != HistoryPath {
		t.Errorf("ParseHistory(path) = %v, %v", h, err)
	}
	if h, err := ParseHistory(""); err != nil || h != HistoryHash {
		t.Errorf("ParseHistory(\"\") = %v, %v", h, err)
	}
	if _, err := ParseHistory("memory"); err == nil {
		t.Error("expected error")
	}
}

func TestTag(t *testing.T) {
	tag := Tag("name", "description", "content", "x", "dangling")
	if len(tag) != 2 {
		t.Fatalf("len(tag) = %d, want 2", len(tag))
	}
	if tag[1] != (Attr{Key: "content", Val: "x"}) {
		t.Errorf("tag[1] = %+v", tag[1])
	}
}
