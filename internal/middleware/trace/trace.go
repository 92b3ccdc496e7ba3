// Package trace tags each request with an id, installs a request logger in
// its context and counts outcomes.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scoreboard/internal/log"
)

const HeaderRequestID = "X-Request-ID"

// maxIncomingID bounds ids accepted from clients or proxies.
const maxIncomingID = 64

type requestIDKey struct{}

// Metrics is a snapshot of request counters.
type Metrics struct {
	TotalRequests  int64
	ServerErrors   int64
	ClientErrors   int64
	LastDurationUs int64
}

type counters struct {
	total, server, client, lastUs atomic.Int64
}

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.Logger
	events   *log.StructuredLogger
	count    counters
}

// NewMiddleware builds the tracer. clientIP and logger may be nil.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.WithComponent(log.ComponentTrace)
	}
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return r.RemoteAddr }
	}
	return &Middleware{clientIP: clientIP, logger: logger, events: log.NewStructuredLogger(logger)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := m.clientIP(r)

		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > maxIncomingID {
			id = GenerateRequestID()
		}
		reqLogger := m.logger.With(log.FieldRequestID, id)
		ctx := log.NewContext(context.WithValue(r.Context(), requestIDKey{}, id), reqLogger)
		r = r.WithContext(ctx)

		reqLogger.DebugContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, ip)
		m.count.total.Add(1)

		w.Header().Set(HeaderRequestID, id)
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.count.lastUs.Store(elapsed.Microseconds())
		status := sw.code()
		if status >= 500 {
			m.count.server.Add(1)
		} else if status >= 400 {
			m.count.client.Add(1)
		}
		m.events.LogHTTPEnd(ctx, r, status, elapsed.Milliseconds(), ip)
	})
}

// statusWriter remembers the first status written; a handler that only
// writes a body gets 200.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusWriter) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func (s *statusWriter) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID returns the id the middleware stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  m.count.total.Load(),
		ServerErrors:   m.count.server.Load(),
		ClientErrors:   m.count.client.Load(),
		LastDurationUs: m.count.lastUs.Load(),
	}
}
