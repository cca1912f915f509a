// Package progress provides the navigation progress indicator.
//
// The controller signals "loading started" when a navigation begins
// resolving and "loading finished" once it has committed (or was
// intercepted). Indicators turn those signals into something observable:
//   - Log writes structured log lines via log/slog
//   - Prometheus records in-flight navigations, attempts, outcomes and durations
//   - OpenTelemetry opens a span per navigation
//
// Combine several with Multi:
//
//	ind := progress.Multi(
//	    progress.Log(logger),
//	    progress.Prometheus(progress.WithRegistry(reg)),
//	)
//	ind.Configure(progress.Options{ShowSpinner: false})
//
// Options are also handed to the browser shell, which draws the bar.
package progress

import (
	"context"
	"time"
)

// Options configures how progress is displayed by the client.
type Options struct {
	// ShowSpinner shows the spinner next to the bar. Default: false.
	ShowSpinner bool `json:"showSpinner"`

	// Minimum is the starting fraction of the bar (0..1). Default: 0.08.
	Minimum float64 `json:"minimum"`

	// Trickle advances the bar while waiting. Default: true.
	Trickle bool `json:"trickle"`

	// TrickleSpeed is the interval between trickles. Default: 200ms.
	TrickleSpeed time.Duration `json:"-"`

	// TrickleSpeedMs mirrors TrickleSpeed for the client.
	TrickleSpeedMs int64 `json:"trickleSpeed"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		ShowSpinner:  false,
		Minimum:      0.08,
		Trickle:      true,
		TrickleSpeed: 200 * time.Millisecond,
	}.normalized()
}

func (o Options) normalized() Options {
	if o.Minimum <= 0 || o.Minimum >= 1 {
		o.Minimum = 0.08
	}
	if o.TrickleSpeed <= 0 {
		o.TrickleSpeed = 200 * time.Millisecond
	}
	o.TrickleSpeedMs = o.TrickleSpeed.Milliseconds()
	return o
}

// Event describes the navigation a signal belongs to.
type Event struct {
	// ID identifies the navigation across redirect attempts.
	ID string

	// Path is the path being resolved (the final path on Done).
	Path string

	// Route is the leaf route name, if any.
	Route string

	// Attempt counts guard redirects; the first attempt is 0.
	Attempt int

	// StartedAt is when the first attempt began.
	StartedAt time.Time

	// Outcome is set on Done ("committed", "aborted", ...).
	Outcome string
}

// Indicator receives progress signals.
// Start may be called once per attempt; Done is called once per navigation.
// Implementations must be safe for concurrent use.
type Indicator interface {
	Configure(opts Options)
	Start(ctx context.Context, ev Event)
	Done(ctx context.Context, ev Event)
}

// Nop returns an indicator that ignores every signal.
func Nop() Indicator { return nopIndicator{} }

type nopIndicator struct{}

func (nopIndicator) Configure(Options)             {}
func (nopIndicator) Start(context.Context, Event) {}
func (nopIndicator) Done(context.Context, Event)  {}

// Multi fans signals out to several indicators in order.
func Multi(indicators ...Indicator) Indicator {
	flat := make(multi, 0, len(indicators))
	for _, ind := range indicators {
		if ind == nil {
			continue
		}
		if m, ok := ind.(multi); ok {
			flat = append(flat, m...)
			continue
		}
		flat = append(flat, ind)
	}
	return flat
}

type multi []Indicator

func (m multi) Configure(opts Options) {
	for _, ind := range m {
		ind.Configure(opts)
	}
}

func (m multi) Start(ctx context.Context, ev Event) {
	for _, ind := range m {
		ind.Start(ctx, ev)
	}
}

func (m multi) Done(ctx context.Context, ev Event) {
	for _, ind := range m {
		ind.Done(ctx, ev)
	}
}
