// Package http is the JSON reporting API: authentication, entry CRUD,
// bulk import/export, aggregated stats and support tickets.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/cache"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

type Server struct {
	http.Server

	entries *services.EntryService
	repo    *storage.SQLiteRepository

	jwtSecret []byte
	tokenTTL  time.Duration

	statsCache   *cache.LRUCache[core.Stats]
	cacheManager *cache.Manager

	limiter     *ratelimit.Limiter
	authLimiter *ratelimit.Limiter
	detector    *security.Detector

	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain, returning a
// ready-to-run server.
func NewServer(cfg *config.Config, entries *services.EntryService, repo *storage.SQLiteRepository) *Server {
	s := &Server{
		entries:      entries,
		repo:         repo,
		jwtSecret:    []byte(cfg.JWTSecret),
		tokenTTL:     cfg.TokenTTL,
		statsCache:   cache.NewLRUCache[core.Stats](cfg.StatsCacheSize, cfg.StatsCacheTTL),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		// Tighter window on credential endpoints
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 10}),
		detector:    security.NewDetector(),
	}

	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	requireAuth := auth.Middleware(s.jwtSecret)
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}
	credLimited := s.authLimiter.Middleware(s.detector.ExtractClientIP, nil)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/register", credLimited(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/login", credLimited(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /api/change-password", authed(s.handleChangePassword))

	mux.Handle("GET /api/entries", authed(s.handleListEntries))
	mux.Handle("POST /api/entries", authed(s.handleCreateEntry))
	mux.Handle("GET /api/entries/{id}", authed(s.handleGetEntry))
	mux.Handle("PUT /api/entries/{id}", authed(s.handleUpdateEntry))
	mux.Handle("DELETE /api/entries/{id}", authed(s.handleDeleteEntry))
	mux.Handle("POST /api/entries/import", authed(s.handleImportEntries))
	mux.Handle("GET /api/entries/export", authed(s.handleExportEntries))

	mux.Handle("GET /api/stats", authed(s.handleStats))

	mux.Handle("GET /api/tickets", authed(s.handleListTickets))
	mux.Handle("POST /api/tickets", authed(s.handleCreateTicket))
	mux.Handle("PUT /api/tickets/{id}", authed(s.handleUpdateTicket))
	mux.Handle("DELETE /api/tickets/{id}", authed(s.handleDeleteTicket))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           headers.Middleware(tracer.Middleware(limited(s.flagSuspicious(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// flagSuspicious logs scan-looking requests. They still go through the
// mux, which 404s anything unrouted.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) statsKey(userID int64) string {
	return fmt.Sprintf("stats:%d", userID)
}

// invalidateStats drops every cached view of one user's aggregation.
func (s *Server) invalidateStats(userID int64) {
	s.statsCache.DeletePrefix(s.statsKey(userID))
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		s.authLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
