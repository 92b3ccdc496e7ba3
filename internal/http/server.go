package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"scoreboard/internal/log"
	"scoreboard/internal/middleware/ratelimit"
	"scoreboard/internal/middleware/security"
	"scoreboard/internal/middleware/trace"
	"scoreboard/internal/services"
	appweb "scoreboard/web"
)

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	// Ready reports whether the backing store is reachable. nil means always ready.
	Ready func(ctx context.Context) error
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// X-Forwarded-For is believed.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	board     *services.ScoreboardService
	ready     func(ctx context.Context) error
	logger    *log.Logger
	events    *log.StructuredLogger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, board *services.ScoreboardService, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithComponent(log.ComponentHTTP)
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector(logger.WithComponent(log.ComponentSecurity))
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	s := &Server{
		templates:   t,
		board:       board,
		ready:       opts.Ready,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP, logger.WithComponent(log.ComponentTrace)),
		started:     time.Now(),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/board", s.handleBoard)
	mux.HandleFunc("POST /kids/{index}/name", s.handleRenameKid)
	mux.HandleFunc("POST /tasks", s.handleAddTask)
	mux.HandleFunc("POST /tasks/{id}/name", s.handleRenameTask)
	mux.HandleFunc("POST /tasks/{id}/value", s.handleSetTaskValue)
	mux.HandleFunc("POST /tasks/{id}/delete", s.handleRemoveTask)
	mux.HandleFunc("POST /completions/toggle", s.handleToggle)
	mux.HandleFunc("POST /week/reset", s.handleResetWeek)
	mux.HandleFunc("GET /api/scoreboard", s.handleAPIScoreboard)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

// middleware wraps h, outermost first: tracing, scan detection, security
// headers, then the POST rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)(h)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	return s.tracer.Middleware(s.detector.Middleware(headers))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	htmxError(http.StatusTooManyRequests, "Too many changes, please wait a minute.").
		header("Retry-After", "60").
		send(w)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady fails while the store is unreachable or the latest save is
// still pending.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	if err := s.board.LastSaveError(); err != nil {
		http.Error(w, "pending save: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
