package auth

import (
	"net/http"
)

// RequireAuth is HTTP middleware that rejects requests whose context
// session has no live principal. Mount it after the middleware that binds
// the session (see session.Manager.Middleware).
//
//	r.With(auth.RequireAuth).Get("/_starter/session", whoami)
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := Check(SessionFrom(r.Context())); err != nil {
			code, _ := StatusCode(err)
			http.Error(w, err.Error(), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that requires the principal to carry role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFrom(SessionFrom(r.Context()))
			if !p.HasRole(role) {
				http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
