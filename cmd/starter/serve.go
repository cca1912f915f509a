package main

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vango-dev/starter/internal/config"
	"github.com/vango-dev/starter/internal/errors"
	"github.com/vango-dev/starter/internal/starter"
	"github.com/vango-dev/starter/internal/web"
	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/navigation"
	"github.com/vango-dev/starter/pkg/progress"
	"github.com/vango-dev/starter/pkg/session"
	"github.com/vango-dev/starter/pkg/view"
)

func serveCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the navigation server",
		Long: `Start the HTTP server.

In hash mode the server hands out a shell page and the browser
navigates over a WebSocket. In path mode every page is rendered on
the server and guard redirects become HTTP redirects.

Examples:
  starter serve
  starter serve --addr=:3000 --history=path
  STARTER_AUTH_DEV_LOGIN=true starter serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, c.stderr)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().String("metrics-addr", "", "Metrics listen address, empty to disable (default :9090)")
	cmd.Flags().Bool("dev-login", false, "Accept any email at POST /_starter/session")
	c.bind(cmd, "server.addr", "addr")
	c.bind(cmd, "server.metrics_addr", "metrics-addr")
	c.bind(cmd, "auth.dev_login", "dev-login")

	return cmd
}

// serve runs the application until ctx is cancelled or a listener fails.
func serve(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger := cfg.NewLogger(logOut)
	if f := cfg.File(); f != "" {
		logger.Info("configuration loaded", "file", f)
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	sessions := session.NewManager(store, cfg.ManagerConfig(), logger)

	views := view.NewRegistry(viewLoader(cfg), view.WithLogger(logger))
	if cfg.Views.Preload {
		if err := views.Preload(ctx, starter.ViewNames()...); err != nil {
			return errors.New("E150").Wrap(err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctrl, err := newController(cfg, logger, reg)
	if err != nil {
		return err
	}

	if cfg.Auth.DevLogin {
		logger.Warn("dev login enabled: any email signs in without a password")
	}
	srv := web.New(ctrl, sessions, views, web.Options{
		DevLogin:   cfg.Auth.DevLogin,
		Progress:   cfg.ProgressOptions(),
		Registerer: reg,
		Logger:     logger,
	})

	appServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", appServer.Addr, "history", cfg.Router.History, "app", cfg.App.Name)
		return listen(appServer)
	})
	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("metrics listening", "addr", metricsServer.Addr)
			return listen(metricsServer)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		srv.Close()
		var errs []error
		errs = append(errs, appServer.Shutdown(shutdownCtx))
		if metricsServer != nil {
			errs = append(errs, metricsServer.Shutdown(shutdownCtx))
		}
		errs = append(errs, sessions.Shutdown(shutdownCtx))
		return stderrors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return errors.FromError(err, "E160")
	}
	logger.Info("stopped")
	return nil
}

func listen(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return nil
}

// newController compiles the route table and wires the auth guard, the
// head sync and the loading indicators.
func newController(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*navigation.Controller, error) {
	r, err := starter.NewRouter(cfg.History())
	if err != nil {
		return nil, errors.New("E120").Wrap(err)
	}

	indicators := []progress.Indicator{
		progress.Log(logger),
		progress.Prometheus(progress.WithRegistry(reg)),
	}
	if cfg.Tracing.Enabled {
		indicators = append(indicators, progress.OpenTelemetry())
	}

	ctrl, err := navigation.New(r,
		navigation.WithLogger(logger),
		navigation.WithMaxRedirects(cfg.Router.MaxRedirects),
		navigation.WithAuthGuard(auth.SessionAccessor(), cfg.Guard),
		navigation.WithHeadSync(cfg.App.Name),
		navigation.WithProgress(progress.Multi(indicators...), cfg.ProgressOptions()),
	)
	if err != nil {
		if stderrors.Is(err, navigation.ErrUnknownRoute) {
			return nil, errors.New("E121").Wrap(err)
		}
		return nil, errors.New("E120").Wrap(err)
	}
	return ctrl, nil
}

// openStore opens the configured session store. The returned func closes
// it along with any database it opened.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if !strings.EqualFold(cfg.Session.Store, "sql") {
		store := session.NewMemoryStore()
		return store, func() { store.Close() }, nil
	}

	dialect, err := session.ParseSQLDialect(cfg.Session.Dialect)
	if err != nil {
		return nil, nil, errors.New("E104").Wrap(err)
	}
	db, err := sql.Open(dialect.String(), cfg.Session.DSN)
	if err != nil {
		return nil, nil, errors.New("E140").Wrap(err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, errors.New("E140").Wrap(err)
	}

	store := session.NewSQLStore(db,
		session.WithSQLDialect(dialect),
		session.WithSQLTableName(cfg.Session.Table),
		session.WithSQLLogger(logger),
	)
	if err := store.CreateTable(ctx); err != nil {
		store.Close()
		db.Close()
		return nil, nil, errors.New("E141").Wrap(err)
	}
	return store, func() {
		store.Close()
		db.Close()
	}, nil
}

// viewLoader returns the loader for the configured view source.
func viewLoader(cfg *config.Config) view.Loader {
	switch strings.ToLower(cfg.Views.Source) {
	case "dir":
		return view.NewFSLoader(os.DirFS(cfg.Views.Dir))
	case "s3":
		client := s3.NewFromConfig(aws.Config{
			Region:      cfg.Views.Region,
			Credentials: envCredentials(),
		})
		return view.NewS3Loader(client, cfg.Views.Bucket, cfg.Views.Prefix)
	default:
		return view.NewFSLoader(starter.Views())
	}
}

// envCredentials reads static credentials from the standard AWS variables.
// Without them requests are sent unsigned, which public buckets accept.
func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	creds := aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	})
}
