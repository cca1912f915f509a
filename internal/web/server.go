// Package web serves the starter over HTTP: the application shell, the
// navigation endpoints, the live navigation channel and the session API.
package web

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/navigation"
	"github.com/vango-dev/starter/pkg/progress"
	"github.com/vango-dev/starter/pkg/router"
	"github.com/vango-dev/starter/pkg/session"
	"github.com/vango-dev/starter/pkg/view"
)

// Options configures a Server.
type Options struct {
	// DevLogin mounts POST /_starter/session, which signs in any email.
	DevLogin bool

	// Progress is passed to the browser client's loading indicator.
	Progress progress.Options

	// Registerer receives the HTTP metrics. Nil disables them.
	Registerer prometheus.Registerer

	// CheckOrigin validates WebSocket upgrades. Nil allows same-origin only.
	CheckOrigin func(r *http.Request) bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP front of a navigation controller.
type Server struct {
	ctrl     *navigation.Controller
	sessions *session.Manager
	views    *view.Registry
	opts     Options
	logger   *slog.Logger
	metrics  *httpMetrics
	upgrader websocket.Upgrader

	mu        sync.Mutex
	histories map[string]*navigation.History
	conns     map[*websocket.Conn]struct{}
}

// New builds a server. Histories are dropped when the session manager
// evicts or destroys their session.
func New(ctrl *navigation.Controller, sessions *session.Manager, views *view.Registry, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl:      ctrl,
		sessions:  sessions,
		views:     views,
		opts:      opts,
		logger:    logger.With("component", "web"),
		histories: make(map[string]*navigation.History),
		conns:     make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
	if opts.Registerer != nil {
		s.metrics = newHTTPMetrics(opts.Registerer)
	}
	sessions.OnEvict(s.dropHistory)
	return s
}

// Handler returns the HTTP handler.
//
//	GET    /healthz
//	GET    /_starter/navigate?to=/path
//	GET    /_starter/live                 (WebSocket)
//	GET    /_starter/session              (authenticated)
//	POST   /_starter/session              (dev login only)
//	DELETE /_starter/session
//	GET    /*                             shell (hash mode) or page (path mode)
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.middleware)
	}

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Route("/_starter", func(r chi.Router) {
			r.Get("/navigate", s.handleNavigate)
			r.Get("/live", s.handleLive)
			r.With(auth.RequireAuth).Get("/session", s.handleWhoAmI)
			r.Delete("/session", s.handleLogout)
			if s.opts.DevLogin {
				r.Post("/session", s.handleDevLogin)
			}
		})

		if s.ctrl.Router().History() == router.HistoryPath {
			r.Get("/*", s.handlePage)
		} else {
			r.Get("/", s.handleShell)
			r.Get("/*", s.handleHashRedirect)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// History returns the navigation history of session id, creating it.
func (s *Server) History(id string) *navigation.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[id]
	if !ok {
		h = s.ctrl.NewHistory()
		s.histories[id] = h
	}
	return h
}

func (s *Server) dropHistory(id string) {
	s.mu.Lock()
	delete(s.histories, id)
	s.mu.Unlock()
}

// Histories returns the number of live histories.
func (s *Server) Histories() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories)
}

func (s *Server) track(conn *websocket.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.liveConns.Inc()
	}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	_, ok := s.conns[conn]
	delete(s.conns, conn)
	s.mu.Unlock()
	if ok && s.metrics != nil {
		s.metrics.liveConns.Dec()
	}
}

// Close closes every live connection. http.Server.Shutdown does not wait
// for hijacked connections, so call Close alongside it.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			deadline())
		c.Close()
	}
}
