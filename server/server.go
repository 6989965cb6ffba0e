// Package server handles HTTP endpoints and request routing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"waitlist-intake/pkg/waitlist"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

var corsAllowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// Client-facing messages.
const (
	msgTooManyRequests = "Too many requests. Please try again later."
	msgInvalidBody     = "Invalid request body"
	msgBodyTooLarge    = "Request body too large"
	msgNotMember       = "Email not found in waitlist"
	msgUnavailable     = "Service temporarily unavailable. Please try again later."
	msgSendFailed      = "Failed to send email. Please try again later."
	msgInternal        = "Internal server error"
	msgMethod          = "Method not allowed"
)

// ListProvider forwards a validated subscription to the mailing list service.
type ListProvider interface {
	Name() string
	Subscribe(ctx context.Context, email string) waitlist.Outcome
}

// Store is the persistent waitlist.
type Store interface {
	Contains(ctx context.Context, email string) (bool, error)
	Add(ctx context.Context, email string) (*waitlist.Entry, error)
}

// Limiter counts subscribe attempts per client identity.
type Limiter interface {
	CheckAndConsume(ctx context.Context, identity string, now time.Time) bool
	Window() time.Duration
}

// Emailer sends notification emails.
type Emailer interface {
	SendWelcome(ctx context.Context, email string) error
	SendRaw(ctx context.Context, msg waitlist.Message) error
}

// Server handles HTTP requests.
type Server struct {
	provider ListProvider
	store    Store
	limiter  Limiter
	emailer  Emailer
	logger   *slog.Logger
	now      func() time.Time
}

// Config holds server configuration.
type Config struct {
	Provider ListProvider
	Store    Store
	Limiter  Limiter
	Emailer  Emailer
	Logger   *slog.Logger
	Now      func() time.Time // Defaults to time.Now
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		provider: cfg.Provider,
		store:    cfg.Store,
		limiter:  cfg.Limiter,
		emailer:  cfg.Emailer,
		logger:   cfg.Logger,
		now:      now,
	}
}

func (s *Server) baseRouter(extra ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(extra...)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: msgMethod})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})
	return r
}

// Handler returns the public router. The generic send endpoint is never
// mounted here.
func (s *Server) Handler() http.Handler {
	r := s.baseRouter(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: corsAllowedHeaders,
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/subscribe", s.handleSubscribe)
	r.Post("/send-welcome", s.handleSendWelcome)

	// Browser preflights are answered by the CORS middleware; a bare
	// OPTIONS still gets the CORS headers.
	r.Options("/subscribe", s.handleOptions)
	r.Options("/send-welcome", s.handleOptions)
	return r
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsAllowedHeaders, ", "))
	w.WriteHeader(http.StatusNoContent)
}

// InternalHandler returns the router for the private listener.
func (s *Server) InternalHandler() http.Handler {
	r := s.baseRouter()
	r.Get("/health", s.handleHealth)
	r.Post("/send-email", s.handleSendEmail)
	return r
}

// newHTTPServer configures a server with timeouts to prevent resource exhaustion.
func newHTTPServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadTimeout:       10 * time.Second,  // Time to read request headers and body
		WriteTimeout:      30 * time.Second,  // Time to write response
		IdleTimeout:       120 * time.Second, // Time to keep connection alive between requests
		ReadHeaderTimeout: 5 * time.Second,   // Time to read request headers only
	}
}

// ListenAndServe serves the public router on port and, when internalPort is
// set, the internal router on internalPort. It blocks until ctx is cancelled
// and then shuts both listeners down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port, internalPort string) error {
	servers := []*http.Server{newHTTPServer(port, s.Handler())}
	if internalPort != "" {
		servers = append(servers, newHTTPServer(internalPort, s.InternalHandler()))
	} else {
		s.logger.Info("INTERNAL_PORT not set, generic send endpoint disabled")
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		s.logger.Info("Starting HTTP server", "addr", srv.Addr)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP servers")
	case serveErr = <-errCh:
		s.logger.Error("HTTP server failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
	return serveErr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// decodeBody reads a size-capped JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) (status int, msg string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, msgBodyTooLarge, false
		}
		return http.StatusBadRequest, msgInvalidBody, false
	}
	return 0, "", true
}

// writeError maps a domain error to its status code and a client-safe message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		verr *waitlist.ValidationError
		perr *waitlist.ProviderError
		derr *waitlist.DispatchError
	)
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
	case errors.Is(err, waitlist.ErrRateLimited):
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: msgTooManyRequests})
	case errors.Is(err, waitlist.ErrNotMember):
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: msgNotMember})
	case waitlist.IsConfig(err):
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgUnavailable})
	case errors.As(err, &perr):
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: perr.Detail})
	case errors.As(err, &derr):
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgSendFailed})
	default:
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
	}
}

// requestLogger logs one line per request in the service's slog format.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
