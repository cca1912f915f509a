// Package auth exposes the authenticated principal of a session.
//
// The package does not validate credentials. A login handler that has
// verified a user stores a Principal on the session:
//
//	auth.Login(sess, auth.Principal{
//	    ID:              user.ID,
//	    Email:           user.Email,
//	    ExpiresAtUnixMs: time.Now().Add(12 * time.Hour).UnixMilli(),
//	})
//
// Navigation guards never read the session directly. They ask an
// Accessor, which is evaluated fresh on every call:
//
//	acc := auth.SessionAccessor()        // reads the session bound to ctx
//	ok := acc.Authenticated(ctx)
//
// HTTP middleware binds the request's session to the context with
// WithSession. Tests use Static.
//
// # Expiry
//
// A principal with a non-zero ExpiresAtUnixMs stops counting as
// authenticated once that instant passes. IsAuthenticated does not
// clear the session; call Logout for that.
//
// # Error Handling
//
//   - auth.ErrUnauthorized maps to 401 Unauthorized
//   - auth.ErrForbidden maps to 403 Forbidden
package auth
