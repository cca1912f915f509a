package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vango-dev/starter/internal/errors"
	"github.com/vango-dev/starter/internal/starter"
	"github.com/vango-dev/starter/pkg/navigation"
	"github.com/vango-dev/starter/pkg/progress"
	"github.com/vango-dev/starter/pkg/router"
	"github.com/vango-dev/starter/pkg/session"
)

const (
	// ConfigFileName is the base name of the configuration file.
	ConfigFileName = "starter"

	// EnvPrefix prefixes environment overrides (STARTER_SERVER_ADDR).
	EnvPrefix = "STARTER"

	// DefaultAddr is the default application listen address.
	DefaultAddr = ":8080"

	// DefaultMetricsAddr is the default metrics listen address.
	DefaultMetricsAddr = ":9090"
)

// Config is the complete starter configuration.
type Config struct {
	App      AppConfig              `mapstructure:"app"`
	Server   ServerConfig           `mapstructure:"server"`
	Router   RouterConfig           `mapstructure:"router"`
	Log      LogConfig              `mapstructure:"log"`
	Session  SessionConfig          `mapstructure:"session"`
	Guard    navigation.GuardConfig `mapstructure:"guard"`
	Auth     AuthConfig             `mapstructure:"auth"`
	Progress ProgressConfig         `mapstructure:"progress"`
	Views    ViewsConfig            `mapstructure:"views"`
	Tracing  TracingConfig          `mapstructure:"tracing"`

	// file is the configuration file that was read, if any.
	file string
}

// AppConfig names the application.
type AppConfig struct {
	// Name is appended to every document title.
	Name string `mapstructure:"name"`
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	// Addr is the application listen address.
	Addr string `mapstructure:"addr"`

	// MetricsAddr serves /metrics. Empty disables the metrics listener.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RouterConfig contains router settings.
type RouterConfig struct {
	// History is "hash" (default) or "path".
	History string `mapstructure:"history"`

	// MaxRedirects bounds guard redirects per navigation.
	MaxRedirects int `mapstructure:"max_redirects"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Format is text or json.
	Format string `mapstructure:"format"`
}

// SessionConfig contains session settings.
type SessionConfig struct {
	// Store is memory or sql.
	Store string `mapstructure:"store"`

	// Dialect selects the SQL flavour of the sql store. Only sqlite has a
	// driver linked in.
	Dialect string `mapstructure:"dialect"`

	// DSN opens the sql store's database.
	DSN string `mapstructure:"dsn"`

	// Table names the sessions table.
	Table string `mapstructure:"table"`

	CookieName string        `mapstructure:"cookie_name"`
	Secure     bool          `mapstructure:"secure"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxLive    int           `mapstructure:"max_live"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	// DevLogin enables POST /_starter/session, which signs in any email
	// without a password. Never enable it in production.
	DevLogin bool `mapstructure:"dev_login"`
}

// ProgressConfig configures the loading indicator.
type ProgressConfig struct {
	ShowSpinner bool `mapstructure:"show_spinner"`
}

// ViewsConfig selects where views are loaded from.
type ViewsConfig struct {
	// Source is embed (default), dir or s3.
	Source string `mapstructure:"source"`

	// Dir is the view root for source=dir.
	Dir string `mapstructure:"dir"`

	// Bucket, Prefix and Region locate views for source=s3.
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`

	// Preload resolves every view at startup.
	Preload bool `mapstructure:"preload"`
}

// TracingConfig enables an OpenTelemetry span per navigation.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// NewViper returns a viper instance with every default set and environment
// overrides enabled. Callers may bind flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("app.name", starter.DefaultAppName)

	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.metrics_addr", DefaultMetricsAddr)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("router.history", router.HistoryHash.String())
	v.SetDefault("router.max_redirects", navigation.DefaultMaxRedirects)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	sessionDefaults := session.DefaultManagerConfig()
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.dialect", session.DialectSQLite.String())
	v.SetDefault("session.dsn", "")
	v.SetDefault("session.table", session.DefaultSQLTableName)
	v.SetDefault("session.cookie_name", sessionDefaults.CookieName)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.ttl", sessionDefaults.TTL)
	v.SetDefault("session.max_live", sessionDefaults.MaxLive)

	guard := navigation.DefaultGuardConfig()
	v.SetDefault("guard.dashboard", guard.Dashboard)
	v.SetDefault("guard.login", guard.Login)

	v.SetDefault("auth.dev_login", false)

	v.SetDefault("progress.show_spinner", progress.DefaultOptions().ShowSpinner)

	v.SetDefault("views.source", "embed")
	v.SetDefault("views.dir", "")
	v.SetDefault("views.bucket", "")
	v.SetDefault("views.prefix", "views/")
	v.SetDefault("views.region", "")
	v.SetDefault("views.preload", true)

	v.SetDefault("tracing.enabled", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v (or starter.yaml from the working directory when
// file is empty), decodes the result and validates it. A missing default
// file is not an error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !stderrors.As(err, &notFound) {
			return nil, errors.New("E100").Wrap(err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.New("E100").Wrap(fmt.Errorf("decode: %w", err))
	}
	c.file = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration built from defaults and environment.
func Default() (*Config, error) {
	var c Config
	if err := NewViper().Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// File returns the configuration file that was read, or "".
func (c *Config) File() string {
	return c.file
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.Name) == "" {
		return errors.New("E108")
	}
	if err := validAddr(c.Server.Addr, false); err != nil {
		return errors.New("E109").WithDetail(fmt.Sprintf("server.addr %q: %v", c.Server.Addr, err))
	}
	if err := validAddr(c.Server.MetricsAddr, true); err != nil {
		return errors.New("E109").WithDetail(fmt.Sprintf("server.metrics_addr %q: %v", c.Server.MetricsAddr, err))
	}
	if _, err := router.ParseHistory(c.Router.History); err != nil {
		return errors.New("E101").Wrap(err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("E102").Wrap(err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New("E103").WithDetail(fmt.Sprintf("got %q", c.Log.Format))
	}

	switch strings.ToLower(c.Session.Store) {
	case "memory":
	case "sql":
		if _, err := session.ParseSQLDialect(c.Session.Dialect); err != nil {
			return errors.New("E104").Wrap(err)
		}
		if c.Session.DSN == "" {
			return errors.New("E105")
		}
	default:
		return errors.New("E104").WithDetail(fmt.Sprintf("got %q", c.Session.Store))
	}

	switch strings.ToLower(c.Views.Source) {
	case "embed":
	case "dir":
		if c.Views.Dir == "" {
			return errors.New("E107")
		}
	case "s3":
		if c.Views.Bucket == "" {
			return errors.New("E107")
		}
	default:
		return errors.New("E106").WithDetail(fmt.Sprintf("got %q", c.Views.Source))
	}
	return nil
}

func validAddr(addr string, optional bool) error {
	if addr == "" {
		if optional {
			return nil
		}
		return stderrors.New("empty")
	}
	_, _, err := net.SplitHostPort(addr)
	return err
}

// History returns the router history mode.
func (c *Config) History() router.History {
	h, _ := router.ParseHistory(c.Router.History)
	return h
}

// ProgressOptions returns the loading indicator options.
func (c *Config) ProgressOptions() progress.Options {
	opts := progress.DefaultOptions()
	opts.ShowSpinner = c.Progress.ShowSpinner
	return opts
}

// ManagerConfig returns the session manager settings.
func (c *Config) ManagerConfig() session.ManagerConfig {
	mc := session.DefaultManagerConfig()
	mc.CookieName = c.Session.CookieName
	mc.Secure = c.Session.Secure
	mc.TTL = c.Session.TTL
	mc.MaxLive = c.Session.MaxLive
	return mc
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}
