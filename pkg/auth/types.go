package auth

import (
	"errors"
	"time"
)

// Session keys written by Login.
const (
	SessionKeyPrincipal = "starter:auth:principal"

	// SessionKeyExpiryUnixMs is the hard expiry timestamp in unix milliseconds.
	SessionKeyExpiryUnixMs = "starter:auth:expiry_unix_ms"
)

var (
	// ErrUnauthorized is returned when authentication is required but not present.
	ErrUnauthorized = errors.New("unauthorized: authentication required")

	// ErrForbidden is returned when an operation is not allowed for the caller.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrSessionExpired indicates the principal's expiry has passed.
	ErrSessionExpired = errors.New("session expired")
)

// Principal represents the authenticated identity.
type Principal struct {
	ID    string   `json:"id"`
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`

	// ExpiresAtUnixMs is zero when the principal never expires.
	ExpiresAtUnixMs int64 `json:"expires_at_unix_ms,omitempty"`
}

// Expired reports whether the principal's expiry is at or before now.
func (p Principal) Expired(now time.Time) bool {
	return p.ExpiresAtUnixMs != 0 && now.UnixMilli() >= p.ExpiresAtUnixMs
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
