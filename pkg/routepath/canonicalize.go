package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Result is a canonicalized navigation path.
type Result struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Fragment is the raw fragment without the leading "#".
	Fragment string

	// Changed reports whether Path differs from the input path.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in non-catch-all segment")
)

// Canonicalize normalizes a requested navigation path.
//
// Trailing slashes are removed (except for "/"), repeated slashes are
// collapsed and "." / ".." segments are resolved. Backslashes, NUL bytes,
// malformed percent-escapes and ".." climbing above the root are rejected.
// Query and fragment are split off and returned untouched.
func Canonicalize(input string) (Result, error) {
	if input == "" {
		return Result{Path: "/", Changed: true}, nil
	}

	rest, fragment, _ := strings.Cut(input, "#")
	path, query, _ := strings.Cut(rest, "?")

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Result{}, err
		}
	}

	original := path
	segments, err := normalize(strings.Split(path, "/"))
	if err != nil {
		return Result{}, err
	}
	path = "/" + strings.Join(segments, "/")

	return Result{
		Path:     path,
		Query:    query,
		Fragment: fragment,
		Changed:  path != original,
	}, nil
}

func normalize(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return nil, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return out, nil
}

// FromHash converts a hash-history address into a navigation path.
//
//	""               → "/"
//	"#"              → "/"
//	"#/auth/signin"  → "/auth/signin"
//	"/#/backend?x=1" → "/backend?x=1"
//
// Absolute URLs are rejected so that a crafted fragment cannot turn into
// an open redirect.
func FromHash(address string) (string, error) {
	if i := strings.Index(address, "#"); i >= 0 {
		address = address[i+1:]
	} else if address != "" && address != "/" {
		return "", ErrInvalidPath
	}
	if address == "" {
		return "/", nil
	}
	return ValidateNavPath(address)
}

// ToHash renders a navigation path as a hash-history href.
func ToHash(path string) string {
	if path == "" {
		path = "/"
	}
	return "#" + path
}

// ValidateNavPath canonicalizes a navigation path and rebuilds it with its
// query string. Navigation paths must be relative: they start with "/" and
// never carry a scheme or host.
func ValidateNavPath(path string) (string, error) {
	if strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "//") {
		return "", ErrInvalidPath
	}
	if !strings.HasPrefix(path, "/") {
		return "", ErrInvalidPath
	}

	res, err := Canonicalize(path)
	if err != nil {
		return "", err
	}
	if res.Query != "" {
		return res.Path + "?" + res.Query, nil
	}
	return res.Path, nil
}

// Segments splits a canonical path into its segments.
// The root path has no segments.
func Segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment decodes a single path segment. Outside catch-all
// parameters a decoded "/" is rejected.
func DecodeSegment(segment string, isCatchAll bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !isCatchAll && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
