package progress

import (
	"context"
	"log/slog"
	"time"
)

// Log returns an indicator that logs navigation progress at debug level.
// If logger is nil, slog.Default() is used.
func Log(logger *slog.Logger) Indicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &logIndicator{logger: logger.With("component", "progress")}
}

type logIndicator struct {
	logger *slog.Logger
}

func (l *logIndicator) Configure(opts Options) {
	l.logger.Debug("progress configured", "show_spinner", opts.ShowSpinner)
}

func (l *logIndicator) Start(ctx context.Context, ev Event) {
	l.logger.DebugContext(ctx, "navigation started",
		"nav_id", ev.ID,
		"path", ev.Path,
		"attempt", ev.Attempt,
	)
}

func (l *logIndicator) Done(ctx context.Context, ev Event) {
	l.logger.DebugContext(ctx, "navigation done",
		"nav_id", ev.ID,
		"path", ev.Path,
		"route", ev.Route,
		"outcome", ev.Outcome,
		"duration", time.Since(ev.StartedAt),
	)
}
