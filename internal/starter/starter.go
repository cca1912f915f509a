// Package starter holds the application route table and its default views.
package starter

import (
	"embed"
	"io/fs"

	"github.com/vango-dev/starter/pkg/router"
)

// DefaultAppName is used when no name is configured. Override it at build
// time with -ldflags "-X github.com/vango-dev/starter/internal/starter.DefaultAppName=...".
var DefaultAppName = "Starter"

//go:embed views
var embedded embed.FS

// Views returns the embedded default views rooted at the view names.
func Views() fs.FS {
	sub, err := fs.Sub(embedded, "views")
	if err != nil {
		panic(err)
	}
	return sub
}

// Route names.
const (
	RouteSignIn       = "auth-signin"
	RouteSignUp       = "auth-signup"
	RouteLock         = "auth-lock"
	RouteReminder     = "auth-reminder"
	RouteTwoFactor    = "auth-two-factor"
	RouteDashboard    = "backend-dashboard"
	RoutePageNotFound = "page-not-found"
)

// Routes returns the application route table.
func Routes() []router.Route {
	return []router.Route{
		{
			Path:     "/",
			Redirect: router.RedirectName(RouteSignIn),
		},
		{
			Path: "/auth",
			View: "layouts/simple",
			Children: []router.Route{
				{
					Path:  "signin",
					Name:  RouteSignIn,
					View:  "auth/signin",
					Query: map[string]string{"reset": "reset"},
					Meta: router.Meta{
						Title: "Sign In",
						Guard: router.GuardGuest,
					},
				},
				{Path: "signup", Name: RouteSignUp, View: "auth/signup"},
				{Path: "lock", Name: RouteLock, View: "auth/lock"},
				{Path: "reminder", Name: RouteReminder, View: "auth/reminder"},
				{Path: "two-factor", Name: RouteTwoFactor, View: "auth/two-factor"},
			},
		},
		{
			Path:     "/backend",
			View:     "layouts/backend",
			Redirect: router.RedirectPath("/backend/dashboard"),
			Children: []router.Route{
				{
					Path: "dashboard",
					Name: RouteDashboard,
					View: "backend/dashboard",
					Meta: router.Meta{
						Title: "Dashboard",
						Guard: router.GuardAuth,
					},
				},
			},
		},
		{
			Path: "/page-not-found",
			Name: RoutePageNotFound,
			View: "errors/404",
			Meta: router.Meta{Title: "Page Not Found"},
		},
		{
			Path:     "/*pathMatch",
			Redirect: router.RedirectPath("/page-not-found"),
		},
	}
}

// NewRouter compiles the route table with the application's router
// settings: the given history mode, "active" link classes and scrolling
// to the origin on every navigation.
func NewRouter(history router.History) (*router.Router, error) {
	return router.New(Routes(),
		router.WithHistory(history),
		router.WithLinkActiveClass("active"),
		router.WithLinkExactActiveClass("active"),
		router.WithScrollBehavior(router.ScrollToTop),
	)
}

// ViewNames returns every view the table references, in declaration order.
func ViewNames() []string {
	var names []string
	seen := map[string]bool{}
	var walk func([]router.Route)
	walk = func(routes []router.Route) {
		for _, rt := range routes {
			if rt.View != "" && !seen[rt.View] {
				seen[rt.View] = true
				names = append(names, rt.View)
			}
			walk(rt.Children)
		}
	}
	walk(Routes())
	return names
}
