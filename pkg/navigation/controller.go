package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/progress"
	"github.com/vango-dev/starter/pkg/router"
)

// DefaultMaxRedirects bounds hook redirects within one navigation.
const DefaultMaxRedirects = 10

// ErrUnknownRoute is returned by New when a hook targets a route name that
// is not in the table.
var ErrUnknownRoute = errors.New("navigation: unknown route name")

// Outcome is how a navigation ended.
type Outcome string

const (
	// OutcomeCommitted: the navigation reached its (possibly redirected) target.
	OutcomeCommitted Outcome = "committed"
	// OutcomeAborted: a hook aborted, or the target could not be resolved.
	OutcomeAborted Outcome = "aborted"
	// OutcomeSuperseded: a later navigation on the same History started first.
	OutcomeSuperseded Outcome = "superseded"
	// OutcomeRedirectLoop: redirects exceeded the configured bound.
	OutcomeRedirectLoop Outcome = "redirect_loop"
)

// GuardConfig names the routes the auth guard redirects to.
type GuardConfig struct {
	// Dashboard receives authenticated users landing on guest-only routes.
	Dashboard string `mapstructure:"dashboard" json:"dashboard" yaml:"dashboard"`

	// Login receives anonymous users landing on auth-only routes.
	Login string `mapstructure:"login" json:"login" yaml:"login"`
}

// DefaultGuardConfig points the guard at the starter route names.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{Dashboard: "backend-dashboard", Login: "auth-signin"}
}

// Controller holds the route table and the hook pipeline. It is immutable
// after New and safe for concurrent use.
type Controller struct {
	router       *router.Router
	hooks        [numStages][]Hook
	logger       *slog.Logger
	maxRedirects int
	appName      string

	// route names hooks redirect to, checked by New
	requiredRoutes []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxRedirects bounds hook redirects per navigation. Default: 10.
func WithMaxRedirects(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxRedirects = n
		}
	}
}

// WithHook registers a hook at its stage.
func WithHook(h Hook) Option {
	return func(c *Controller) {
		if h.Run == nil || h.Stage < 0 || h.Stage >= numStages {
			return
		}
		c.hooks[h.Stage] = append(c.hooks[h.Stage], h)
	}
}

// BeforeResolve registers a StageResolveStart hook.
func BeforeResolve(name string, fn HookFunc) Option {
	return WithHook(Hook{Name: name, Stage: StageResolveStart, Run: fn})
}

// BeforeEach registers a StageGuard hook.
func BeforeEach(name string, fn HookFunc) Option {
	return WithHook(Hook{Name: name, Stage: StageGuard, Run: fn})
}

// BeforeCommit registers a StageMeta hook.
func BeforeCommit(name string, fn HookFunc) Option {
	return WithHook(Hook{Name: name, Stage: StageMeta, Run: fn})
}

// AfterEach registers a StageAfter hook.
func AfterEach(name string, fn AfterFunc) Option {
	return WithHook(Hook{Name: name, Stage: StageAfter, Run: func(ctx context.Context, nav *Navigation) Decision {
		fn(ctx, nav)
		return Next()
	}})
}

// WithAuthGuard installs the authentication guard. New fails with
// ErrUnknownRoute if either target in cfg is missing from the table.
func WithAuthGuard(acc auth.Accessor, cfg GuardConfig) Option {
	return func(c *Controller) {
		c.requiredRoutes = append(c.requiredRoutes, cfg.Dashboard, cfg.Login)
		WithHook(AuthGuard(acc, cfg))(c)
	}
}

// WithHeadSync installs the title and meta hook and names the application.
func WithHeadSync(appName string) Option {
	return func(c *Controller) {
		c.appName = appName
		WithHook(HeadSync(appName))(c)
	}
}

// WithProgress configures ind and installs its start and done hooks.
func WithProgress(ind progress.Indicator, opts progress.Options) Option {
	return func(c *Controller) {
		if ind == nil {
			return
		}
		ind.Configure(opts)
		WithHook(ProgressStart(ind))(c)
		WithHook(ProgressDone(ind))(c)
	}
}

// New builds a controller over r.
func New(r *router.Router, opts ...Option) (*Controller, error) {
	if r == nil {
		return nil, errors.New("navigation: nil router")
	}
	c := &Controller{
		router:       r,
		logger:       slog.Default(),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, name := range c.requiredRoutes {
		if !r.HasRoute(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
		}
	}
	c.logger = c.logger.With("component", "navigation")
	return c, nil
}

// Router returns the route table.
func (c *Controller) Router() *router.Router {
	return c.router
}

// AppName returns the application name used for titles.
func (c *Controller) AppName() string {
	return c.appName
}

// Hooks returns the registered hooks in pipeline order.
func (c *Controller) Hooks() []Hook {
	var out []Hook
	for _, stage := range c.hooks {
		out = append(out, stage...)
	}
	return out
}

// runStage runs the hooks of one stage until one does not answer Next.
func (c *Controller) runStage(ctx context.Context, stage Stage, nav *Navigation) (Decision, string) {
	for _, h := range c.hooks[stage] {
		d := h.Run(ctx, nav)
		if !d.IsNext() {
			return d, h.Name
		}
	}
	return Next(), ""
}

func (c *Controller) runAfter(ctx context.Context, nav *Navigation) {
	for _, h := range c.hooks[StageAfter] {
		h.Run(ctx, nav)
	}
}
