// Package router implements the route table behind the navigation controller.
//
// The router provides:
//   - Declarative route descriptors with nested children
//   - Radix tree matching over static, parameter and catch-all segments
//   - The matched chain (outermost layout first) for every resolved location
//   - Named routes, record-level redirects and redirect-loop protection
//   - Hash or path history addressing, link classes and scroll behaviour
//
// # Route Table
//
// Routes are declared once at start-up and never change afterwards:
//
//	r, err := router.New([]router.Route{
//	    {Path: "/", Redirect: router.RedirectName("auth-signin")},
//	    {
//	        Path: "/auth",
//	        View: "layouts/simple",
//	        Children: []router.Route{
//	            {
//	                Path: "signin",
//	                Name: "auth-signin",
//	                View: "auth/signin",
//	                Meta: router.Meta{Title: "Sign In", Guard: router.GuardGuest},
//	            },
//	        },
//	    },
//	    {Path: "/*pathMatch", Redirect: router.RedirectPath("/page-not-found")},
//	})
//
// # Segments
//
//	/users/:id     → named parameter
//	/files/*rest   → catch-all, consumes the remaining segments
//
// Static segments win over parameters, parameters win over catch-alls.
//
// # Resolution
//
// Match returns the raw match for a path. Resolve also follows record
// redirects and applies query defaults:
//
//	loc, err := r.Resolve(router.Path("/backend"))
//	// loc.Path == "/backend/dashboard", loc.RedirectedFrom.Path == "/backend"
package router
