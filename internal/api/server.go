// Package api exposes the round engine as JSON over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/moneyrush/round-engine/internal/game"
	"github.com/moneyrush/round-engine/internal/metrics"
)

// Options configures the HTTP server.
type Options struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	// Static, when set, is a directory served at / (the browser UI).
	Static string
	Now    func() time.Time
}

// Server serves the game API for one engine.
type Server struct {
	engine   *game.Engine
	sessions *Sessions
	log      *slog.Logger
	opts     Options
	now      func() time.Time
}

// New creates a Server for e.
func New(e *game.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		engine:   e,
		sessions: NewSessions(opts.SessionTTL, opts.Now),
		log:      opts.Logger,
		opts:     opts,
		now:      opts.Now,
	}
}

// Sessions returns the server's token table.
func (s *Server) Sessions() *Sessions { return s.sessions }

// Routes builds the chi router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "moneyrush"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.ping)
		r.Get("/state", s.state)
		r.Get("/print", s.print)
		r.Post("/register", s.register)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.adminLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/settings", s.updateSettings)
				r.Post("/marketCondition/add", s.addMarketCondition)
				r.Post("/event/add", s.addEvent)
				r.Post("/initialize", s.initialize)
				r.Post("/resetAll", s.resetAll)
				r.Post("/approve", s.approve)
				r.Post("/reject", s.reject)
				r.Post("/team/delete", s.deleteTeam)
				r.Post("/marketScan", s.marketScan)
				r.Post("/beginSpin", s.beginSpin)
				r.Post("/spin", s.spin)
				r.Post("/openTrading", s.openTrading)
				r.Post("/closeTrading", s.closeTrading)
				r.Post("/endGame", s.endGame)
			})
		})

		r.Route("/agent", func(r chi.Router) {
			r.Post("/login", s.agentLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAgent)
				r.Post("/acceptEvent", s.acceptEvent)
				r.Post("/tx", s.transact)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeFailure(w, http.StatusNotFound, "not_found", "Unknown API endpoint")
		})
	})

	if s.opts.Static != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.Static)))
	}
	return r
}

// writeError maps an engine error onto the response envelope. Unclassified
// errors are logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := game.Kind(err)
	status := http.StatusInternalServerError
	msg := "Server error"
	switch kind {
	case "validation":
		status = http.StatusBadRequest
	case "unauthorized":
		status = http.StatusUnauthorized
	case "forbidden":
		status = http.StatusForbidden
	case "not_found":
		status = http.StatusNotFound
	}
	var ge *game.Error
	if status != http.StatusInternalServerError && errors.As(err, &ge) {
		msg = ge.Msg
	}
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeFailure(w, status, kind, msg)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
