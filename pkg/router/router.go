package router

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/vango-dev/starter/pkg/routepath"
)

// DefaultMaxRedirects bounds record redirects followed by Resolve.
const DefaultMaxRedirects = 10

// Route table errors.
var (
	ErrDuplicateName = errors.New("router: duplicate route name")
	ErrMissingView   = errors.New("router: leaf route has no view")
	ErrUnknownRoute  = errors.New("router: unknown route name")
	ErrMissingParam  = errors.New("router: missing route parameter")
	ErrNoMatch       = errors.New("router: no route matches path")
	ErrRedirectLoop  = errors.New("router: too many redirects")
)

// Router is an immutable route table.
type Router struct {
	root    *node
	records []*Record
	byName  map[string]*Record

	history          History
	activeClass      string
	exactActiveClass string
	scroll           ScrollBehavior
	maxRedirects     int
}

// Option configures a Router.
type Option func(*Router)

// WithHistory sets the history addressing mode. Default: HistoryHash.
func WithHistory(h History) Option {
	return func(r *Router) {
		r.history = h
	}
}

// WithLinkActiveClass sets the class for links whose target is part of the
// current matched chain. Default: "active".
func WithLinkActiveClass(class string) Option {
	return func(r *Router) {
		r.activeClass = class
	}
}

// WithLinkExactActiveClass sets the class for links that point exactly at
// the current location. Default: "active".
func WithLinkExactActiveClass(class string) Option {
	return func(r *Router) {
		r.exactActiveClass = class
	}
}

// WithScrollBehavior sets the scroll behaviour. Default: scroll to origin.
func WithScrollBehavior(fn ScrollBehavior) Option {
	return func(r *Router) {
		r.scroll = fn
	}
}

// WithMaxRedirects bounds record redirects followed by Resolve.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// ScrollToTop returns the origin for every navigation.
func ScrollToTop(to, from *Location) Position {
	return Position{Left: 0, Top: 0}
}

// New compiles routes into a router.
//
// It fails when two records share a name or when a leaf record has neither
// a view nor a redirect.
func New(routes []Route, opts ...Option) (*Router, error) {
	r := &Router{
		root:             newNode(""),
		byName:           make(map[string]*Record),
		history:          HistoryHash,
		activeClass:      "active",
		exactActiveClass: "active",
		scroll:           ScrollToTop,
		maxRedirects:     DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range routes {
		if _, err := r.add(&routes[i], nil); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Router) add(route *Route, parent *Record) (*Record, error) {
	rec := &Record{
		Path:     joinPattern(parent, route.Path),
		Name:     route.Name,
		View:     route.View,
		Meta:     route.Meta,
		Query:    route.Query,
		Parent:   parent,
		redirect: route.Redirect,
	}

	if rec.Name != "" {
		if _, exists := r.byName[rec.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, rec.Name)
		}
		r.byName[rec.Name] = rec
	}
	if len(route.Children) == 0 && rec.View == "" && rec.redirect == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingView, rec.Path)
	}

	r.records = append(r.records, rec)
	if rec.View != "" || rec.redirect != nil {
		n := r.root.insert(rec.Path)
		// The first declaration of a pattern wins, as with the tree order.
		if n.record == nil {
			n.record = rec
		}
	}

	for i := range route.Children {
		child, err := r.add(&route.Children[i], rec)
		if err != nil {
			return nil, err
		}
		rec.Children = append(rec.Children, child)
	}
	return rec, nil
}

func joinPattern(parent *Record, p string) string {
	if strings.HasPrefix(p, "/") || parent == nil {
		return "/" + strings.Trim(p, "/")
	}
	if p == "" {
		return parent.Path
	}
	return path.Join(parent.Path, p)
}

// Records returns every record in declaration order (parents first).
func (r *Router) Records() []*Record {
	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out
}

// Names returns the route names in declaration order.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.byName))
	for _, rec := range r.records {
		if rec.Name != "" {
			names = append(names, rec.Name)
		}
	}
	return names
}

// Lookup returns the record with the given name.
func (r *Router) Lookup(name string) (*Record, bool) {
	rec, ok := r.byName[name]
	return rec, ok
}

// HasRoute reports whether a route with the given name exists.
func (r *Router) HasRoute(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// History returns the history addressing mode.
func (r *Router) History() History {
	return r.history
}

// Match matches a path without following redirects.
func (r *Router) Match(rawPath string) (*Location, bool) {
	canon, err := routepath.Canonicalize(rawPath)
	if err != nil {
		return nil, false
	}
	params := make(map[string]string)
	rec, ok := r.root.match(routepath.Segments(canon.Path), params)
	if !ok {
		return nil, false
	}
	query, _ := url.ParseQuery(canon.Query)
	return &Location{
		Path:    canon.Path,
		Query:   query,
		Name:    rec.Name,
		Params:  params,
		Matched: rec.Chain(),
	}, true
}

// Resolve turns a target into a location, following record redirects.
// Query defaults of the final record are applied to values not present.
func (r *Router) Resolve(t Target) (*Location, error) {
	var prev *Location
	for i := 0; i <= r.maxRedirects; i++ {
		loc, err := r.resolveOne(t)
		if err != nil {
			return nil, err
		}
		loc.RedirectedFrom = prev

		leaf := loc.Leaf()
		if leaf == nil || leaf.redirect == nil {
			applyQueryDefaults(loc, leaf)
			return loc, nil
		}
		t = leaf.redirect(loc)
		prev = loc
	}
	return nil, fmt.Errorf("%w: %s", ErrRedirectLoop, t)
}

func (r *Router) resolveOne(t Target) (*Location, error) {
	if t.Name != "" {
		rec, ok := r.byName[t.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, t.Name)
		}
		p, err := fillPattern(rec.Path, t.Params)
		if err != nil {
			return nil, err
		}
		loc, ok := r.Match(p)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, p)
		}
		mergeQuery(loc, t.Query)
		return loc, nil
	}

	p := t.Path
	if strings.HasPrefix(p, "#") {
		fromHash, err := routepath.FromHash(p)
		if err != nil {
			return nil, fmt.Errorf("router: resolve %q: %w", t.Path, err)
		}
		p = fromHash
	}
	if p == "" {
		p = "/"
	}
	canon, err := routepath.ValidateNavPath(p)
	if err != nil {
		return nil, fmt.Errorf("router: resolve %q: %w", t.Path, err)
	}
	loc, ok := r.Match(canon)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, canon)
	}
	mergeQuery(loc, t.Query)
	return loc, nil
}

func mergeQuery(loc *Location, q url.Values) {
	if len(q) == 0 {
		return
	}
	if loc.Query == nil {
		loc.Query = url.Values{}
	}
	for k, vs := range q {
		loc.Query[k] = append([]string(nil), vs...)
	}
}

func applyQueryDefaults(loc *Location, rec *Record) {
	if rec == nil || len(rec.Query) == 0 {
		return
	}
	if loc.Query == nil {
		loc.Query = url.Values{}
	}
	for k, v := range rec.Query {
		if _, ok := loc.Query[k]; !ok {
			loc.Query.Set(k, v)
		}
	}
}

// fillPattern substitutes params into a record pattern.
func fillPattern(pattern string, params map[string]string) (string, error) {
	segments := routepath.Segments(pattern)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch {
		case strings.HasPrefix(seg, ":"):
			v, ok := params[seg[1:]]
			if !ok || v == "" {
				return "", fmt.Errorf("%w: %q in %s", ErrMissingParam, seg[1:], pattern)
			}
			out = append(out, url.PathEscape(v))
		case strings.HasPrefix(seg, "*"):
			if v := params[seg[1:]]; v != "" {
				out = append(out, v)
			}
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// Href renders a location as a link under the configured history mode.
func (r *Router) Href(loc *Location) string {
	full := loc.FullPath()
	if r.history == HistoryHash {
		return routepath.ToHash(full)
	}
	return full
}

// Scroll returns the scroll position for a navigation from one location to another.
func (r *Router) Scroll(to, from *Location) Position {
	return r.scroll(to, from)
}

// LinkClass returns the class for a link to target while current is shown.
//
// A link is active when its leaf record is part of the current matched
// chain and its params agree with the current ones. It is exact-active when
// it points at the current leaf with the same params. Unresolvable targets
// get no class.
func (r *Router) LinkClass(current *Location, target Target) string {
	if current == nil {
		return ""
	}
	to, err := r.Resolve(target)
	if err != nil {
		return ""
	}
	leaf := to.Leaf()

	var classes []string
	active := false
	for _, rec := range current.Matched {
		if rec == leaf {
			active = includesParams(current.Params, to.Params)
			break
		}
	}
	if active && r.activeClass != "" {
		classes = append(classes, r.activeClass)
	}
	if leaf == current.Leaf() && sameParams(to.Params, current.Params) && r.exactActiveClass != "" {
		if len(classes) == 0 || classes[0] != r.exactActiveClass {
			classes = append(classes, r.exactActiveClass)
		}
	}
	return strings.Join(classes, " ")
}

func includesParams(outer, inner map[string]string) bool {
	for k, v := range inner {
		if outer[k] != v {
			return false
		}
	}
	return true
}

func sameParams(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
