package router

import (
	"fmt"
	"net/url"
	"strings"
)

// Guard is a route-level access policy.
type Guard int

const (
	// GuardNone places no restriction on the route.
	GuardNone Guard = iota

	// GuardGuest restricts the route to visitors without a session.
	GuardGuest

	// GuardAuth restricts the route to authenticated visitors.
	GuardAuth
)

// String returns the policy name used in route listings.
func (g Guard) String() string {
	switch g {
	case GuardGuest:
		return "guest"
	case GuardAuth:
		return "auth"
	default:
		return ""
	}
}

// ParseGuard parses a policy name. The empty string is GuardNone.
func ParseGuard(s string) (Guard, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return GuardNone, nil
	case "guest":
		return GuardGuest, nil
	case "auth":
		return GuardAuth, nil
	default:
		return GuardNone, fmt.Errorf("router: unknown guard %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Guard) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Guard) UnmarshalText(text []byte) error {
	parsed, err := ParseGuard(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Attr is a single attribute of an injected meta element.
type Attr struct {
	Key string `json:"key" yaml:"key"`
	Val string `json:"val" yaml:"val"`
}

// MetaTag describes one meta element as an ordered attribute list.
type MetaTag []Attr

// Tag builds a MetaTag from alternating key/value pairs.
// A trailing key without a value is ignored.
//
//	router.Tag("name", "description", "content", "Sign in to the console")
func Tag(kv ...string) MetaTag {
	tag := make(MetaTag, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tag = append(tag, Attr{Key: kv[i], Val: kv[i+1]})
	}
	return tag
}

// Meta is per-record metadata. It is never merged across the matched chain;
// consumers pick the nearest record that carries the field they need.
type Meta struct {
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Guard    Guard     `json:"guard,omitempty" yaml:"guard,omitempty"`
	MetaTags []MetaTag `json:"metaTags,omitempty" yaml:"metaTags,omitempty"`
}

// Route is a route descriptor as declared by the application.
type Route struct {
	// Path is the pattern. Child paths without a leading "/" are relative
	// to their parent.
	Path string

	// Name is an optional unique name used for named navigation.
	Name string

	// View names the view (page or layout) rendered for this record.
	// Views are resolved lazily by the view registry.
	View string

	// Redirect, when set, sends navigations that land on this record
	// elsewhere before any hook runs.
	Redirect Redirect

	// Query holds default query values applied when the navigation
	// does not supply them.
	Query map[string]string

	// Meta is the record metadata.
	Meta Meta

	// Children are nested routes rendered inside this record's view.
	Children []Route
}

// Redirect computes the redirect target for a location that landed on a
// redirecting record.
type Redirect func(to *Location) Target

// RedirectPath redirects to a fixed path.
func RedirectPath(path string) Redirect {
	return func(*Location) Target { return Path(path) }
}

// RedirectName redirects to a named route, carrying the current params.
func RedirectName(name string) Redirect {
	return func(to *Location) Target { return Named(name, to.Params) }
}

// Target is a navigation target: either a path or a route name.
type Target struct {
	Path   string
	Name   string
	Params map[string]string
	Query  url.Values
}

// Path returns a path target. The path may carry a query string.
func Path(path string) Target {
	return Target{Path: path}
}

// Named returns a named target.
func Named(name string, params map[string]string) Target {
	return Target{Name: name, Params: params}
}

// String renders the target for logs.
func (t Target) String() string {
	if t.Name != "" {
		return "name:" + t.Name
	}
	return t.Path
}

// IsZero reports whether the target is empty.
func (t Target) IsZero() bool {
	return t.Path == "" && t.Name == ""
}

// Record is a compiled route descriptor.
type Record struct {
	// Path is the absolute pattern.
	Path string

	// Name is the unique route name, if any.
	Name string

	// View is the view rendered for this record.
	View string

	// Meta is the record's own metadata.
	Meta Meta

	// Query holds default query values.
	Query map[string]string

	// Parent is the enclosing record, nil at the top level.
	Parent *Record

	// Children are the nested records.
	Children []*Record

	redirect Redirect
}

// Redirects reports whether the record redirects.
func (r *Record) Redirects() bool {
	return r.redirect != nil
}

// Chain returns the record and its ancestors, outermost first.
func (r *Record) Chain() []*Record {
	var chain []*Record
	for rec := r; rec != nil; rec = rec.Parent {
		chain = append(chain, rec)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Location is a resolved navigation target.
type Location struct {
	// Path is the concrete path.
	Path string

	// Query holds the query values, including record defaults.
	Query url.Values

	// Name is the leaf record's name.
	Name string

	// Params are the extracted path parameters.
	Params map[string]string

	// Matched is the matched chain, outermost first.
	Matched []*Record

	// RedirectedFrom is the location that redirected here, if any.
	RedirectedFrom *Location
}

// Leaf returns the innermost matched record.
func (l *Location) Leaf() *Record {
	if l == nil || len(l.Matched) == 0 {
		return nil
	}
	return l.Matched[len(l.Matched)-1]
}

// FullPath returns the path with its encoded query string.
func (l *Location) FullPath() string {
	if l == nil {
		return ""
	}
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Views returns the views of the matched chain, outermost first.
// Records without a view are skipped.
func (l *Location) Views() []string {
	if l == nil {
		return nil
	}
	views := make([]string, 0, len(l.Matched))
	for _, rec := range l.Matched {
		if rec.View != "" {
			views = append(views, rec.View)
		}
	}
	return views
}

// Position is a scroll position.
type Position struct {
	Left int `json:"left"`
	Top  int `json:"top"`
}

// ScrollBehavior computes the scroll position after a navigation.
type ScrollBehavior func(to, from *Location) Position

// History selects how locations are addressed in hrefs.
type History int

const (
	// HistoryHash addresses locations in the URL fragment ("#/path").
	HistoryHash History = iota

	// HistoryPath addresses locations by URL path ("/path").
	HistoryPath
)

// String returns the history mode name.
func (h History) String() string {
	if h == HistoryPath {
		return "path"
	}
	return "hash"
}

// ParseHistory parses a history mode name.
func ParseHistory(s string) (History, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hash":
		return HistoryHash, nil
	case "path", "html5", "web":
		return HistoryPath, nil
	default:
		return HistoryHash, fmt.Errorf("router: unknown history mode %q", s)
	}
}
