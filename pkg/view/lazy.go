package view

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
)

// Lazy is a view resolved on first use. A successful parse is cached; a
// failed one is retried on the next use.
type Lazy struct {
	name   string
	loader Loader
	funcs  template.FuncMap

	mu   sync.Mutex
	tmpl *template.Template
}

// NewLazy returns an unresolved view.
func NewLazy(name string, loader Loader, funcs template.FuncMap) *Lazy {
	return &Lazy{name: name, loader: loader, funcs: funcs}
}

// Name returns the view name.
func (l *Lazy) Name() string { return l.name }

// Resolved reports whether the view has been parsed.
func (l *Lazy) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tmpl != nil
}

// Resolve loads and parses the view, or returns the cached template.
func (l *Lazy) Resolve(ctx context.Context) (*template.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tmpl != nil {
		return l.tmpl, nil
	}
	src, err := l.loader.Load(ctx, l.name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(l.name).Funcs(l.funcs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("view: parse %s: %w", l.name, err)
	}
	l.tmpl = tmpl
	return tmpl, nil
}

// Registry hands out one Lazy per view name.
type Registry struct {
	loader Loader
	funcs  template.FuncMap
	logger *slog.Logger

	mu    sync.Mutex
	views map[string]*Lazy
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFuncs adds template functions available to every view.
func WithFuncs(funcs template.FuncMap) RegistryOption {
	return func(r *Registry) {
		for k, v := range funcs {
			r.funcs[k] = v
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns a registry loading views through loader.
func NewRegistry(loader Loader, opts ...RegistryOption) *Registry {
	r := &Registry{
		loader: loader,
		funcs:  template.FuncMap{},
		logger: slog.Default(),
		views:  make(map[string]*Lazy),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "view")
	return r
}

// Get returns the lazy view for name without loading it.
func (r *Registry) Get(name string) *Lazy {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.views[name]
	if !ok {
		l = NewLazy(name, r.loader, r.funcs)
		r.views[name] = l
	}
	return l
}

// Preload resolves the named views, stopping at the first failure.
func (r *Registry) Preload(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := r.Get(name).Resolve(ctx); err != nil {
			return err
		}
		r.logger.Debug("view preloaded", "view", name)
	}
	return nil
}
