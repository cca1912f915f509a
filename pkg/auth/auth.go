package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"time"
)

// Session provides minimal session access needed by auth helpers.
type Session interface {
	Get(key string) any
	Set(key string, value any)
	Delete(key string)
}

func isNilSession(session Session) bool {
	if session == nil {
		return true
	}
	v := reflect.ValueOf(session)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Ptr, reflect.Interface, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// now is replaced in tests.
var now = time.Now

// Login stores the principal and its expiry on the session.
func Login(session Session, principal Principal) {
	if isNilSession(session) {
		return
	}
	session.Set(SessionKeyPrincipal, principal)
	if principal.ExpiresAtUnixMs != 0 {
		session.Set(SessionKeyExpiryUnixMs, principal.ExpiresAtUnixMs)
	} else {
		session.Delete(SessionKeyExpiryUnixMs)
	}
}

// Logout removes authentication state from the session.
func Logout(session Session) {
	if isNilSession(session) {
		return
	}
	session.Delete(SessionKeyPrincipal)
	session.Delete(SessionKeyExpiryUnixMs)
}

// PrincipalFrom returns the principal stored on the session.
//
// Sessions restored from a store hold decoded JSON rather than a Principal;
// those values are converted back.
func PrincipalFrom(session Session) (Principal, bool) {
	if isNilSession(session) {
		return Principal{}, false
	}
	switch v := session.Get(SessionKeyPrincipal).(type) {
	case nil:
		return Principal{}, false
	case Principal:
		return v, true
	case *Principal:
		if v == nil {
			return Principal{}, false
		}
		return *v, true
	case json.RawMessage:
		return decodePrincipal(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return Principal{}, false
		}
		return decodePrincipal(raw)
	}
}

func decodePrincipal(raw []byte) (Principal, bool) {
	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return Principal{}, false
	}
	return p, true
}

// Check returns nil when the session carries a live principal,
// ErrSessionExpired when its expiry has passed, and ErrUnauthorized otherwise.
func Check(session Session) error {
	p, ok := PrincipalFrom(session)
	if !ok {
		return ErrUnauthorized
	}
	t := now()
	if p.Expired(t) {
		return ErrSessionExpired
	}
	if ms, ok := expiryFrom(session); ok && t.UnixMilli() >= ms {
		return ErrSessionExpired
	}
	return nil
}

// IsAuthenticated reports whether the session carries a principal that has
// not expired.
func IsAuthenticated(session Session) bool {
	return Check(session) == nil
}

func expiryFrom(session Session) (int64, bool) {
	switch v := session.Get(SessionKeyExpiryUnixMs).(type) {
	case int64:
		return v, v != 0
	case int:
		return int64(v), v != 0
	case float64:
		return int64(v), v != 0
	case json.Number:
		n, err := v.Int64()
		return n, err == nil && n != 0
	default:
		return 0, false
	}
}

// StatusCode returns the appropriate HTTP status code for an auth error.
// Returns (statusCode, true) for auth errors, (0, false) otherwise.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized, true
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, true
	default:
		return 0, false
	}
}

type sessionKey struct{}

// WithSession binds a session to the context.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFrom returns the session bound to the context, or nil.
func SessionFrom(ctx context.Context) Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}

// Accessor answers whether the current user is authenticated.
// Implementations must read the flag fresh on every call.
type Accessor interface {
	Authenticated(ctx context.Context) bool
}

// AccessorFunc adapts a function to an Accessor.
type AccessorFunc func(ctx context.Context) bool

// Authenticated calls f(ctx).
func (f AccessorFunc) Authenticated(ctx context.Context) bool {
	return f(ctx)
}

// SessionAccessor returns an Accessor backed by the session bound to the
// context with WithSession. A context without a session is anonymous.
func SessionAccessor() Accessor {
	return AccessorFunc(func(ctx context.Context) bool {
		return IsAuthenticated(SessionFrom(ctx))
	})
}

// Static returns an Accessor with a fixed answer.
func Static(authenticated bool) Accessor {
	return AccessorFunc(func(context.Context) bool {
		return authenticated
	})
}
