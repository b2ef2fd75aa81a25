package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/magiclink/internal/auth"
	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/database"
	"github.com/dukerupert/magiclink/internal/handler"
	"github.com/dukerupert/magiclink/internal/metrics"
	"github.com/dukerupert/magiclink/internal/middleware"
	"github.com/dukerupert/magiclink/internal/postread"
	"github.com/dukerupert/magiclink/internal/store"
)

type Config struct {
	BaseURL       string
	CookieSecure  bool
	SessionSecret string
}

type Server struct {
	db            *database.DB
	authH         *handler.AuthHandler
	postH         *handler.PostHandler
	sessions      *auth.Sessions
	sessionStore  *store.SessionStore
	postReadStore *store.PostReadStore
	rateLimiter   *middleware.RateLimiter
	metrics       *metrics.Collector
	logger        *slog.Logger
}

func New(db *database.DB, enc auth.Encrypter, mailer handler.Mailer, cfg Config, clk clock.Clock, collector *metrics.Collector, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db, clk)
	sessionStore := store.NewSessionStore(db)
	postReadStore := store.NewPostReadStore(db)

	links := auth.NewMagicLinks(enc, clk, logger.With("component", "magic_link"))
	sessions := auth.NewSessions(sessionStore, clk, logger.With("component", "session"))
	reads := postread.NewRecorder(postReadStore, clk, logger.With("component", "post_read"))

	authCfg := handler.AuthConfig{
		BaseURL:       cfg.BaseURL,
		CookieSecure:  cfg.CookieSecure,
		SessionSecret: cfg.SessionSecret,
	}

	return &Server{
		db:            db,
		authH:         handler.NewAuthHandler(links, sessions, sessionStore, userStore, mailer, authCfg, collector, logger.With("component", "auth")),
		postH:         handler.NewPostHandler(reads, collector, logger.With("component", "post")),
		sessions:      sessions,
		sessionStore:  sessionStore,
		postReadStore: postReadStore,
		rateLimiter:   middleware.NewRateLimiter(10, time.Minute),
		metrics:       collector,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the login rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.logger.With("component", "http")))

	// Public routes (no auth required)
	r.Get("/health", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/teams", s.authH.Teams)
	r.With(middleware.RateLimit(s.rateLimiter, middleware.RealIP)).Post("/login", s.authH.Login)
	r.Get("/"+auth.MagicLinkPath, s.authH.Magic)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.sessions, s.metrics, s.logger.With("component", "auth_middleware")))

		r.Post("/logout", s.authH.Logout)
		r.Get("/me", s.authH.Me)
		r.Patch("/me", s.authH.UpdateMe)

		r.Post("/posts/{slug}/read", s.postH.MarkRead)

		r.With(middleware.RequireAdmin).Get("/admin/posts/{slug}/reads", s.postH.ReadCount(s.postReadStore))
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check ping", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
