package http

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"scoreboard/internal/cache"
	"scoreboard/internal/log"
	"scoreboard/internal/middleware/ratelimit"
	"scoreboard/internal/middleware/security"
	"scoreboard/internal/middleware/trace"
)

func (s *Server) handleAPIScoreboard(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, newAPIScoreboard(s.board.View()))
}

type metricsSnapshot struct {
	UptimeSeconds int64                     `json:"uptime_seconds"`
	Revision      uint64                    `json:"revision"`
	SavePending   bool                      `json:"save_pending"`
	Requests      trace.Metrics             `json:"requests"`
	RateLimit     ratelimit.Metrics         `json:"rate_limit"`
	Security      security.DetectionMetrics `json:"security"`
	ViewCache     cache.Stats               `json:"view_cache"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, metricsSnapshot{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Revision:      s.board.State().Revision,
		SavePending:   s.board.LastSaveError() != nil,
		Requests:      s.tracer.GetMetrics(),
		RateLimit:     s.rateLimiter.GetMetrics(),
		Security:      s.detector.GetMetrics(),
		ViewCache:     s.board.ViewCacheStats(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.events.LogError(r.Context(), "JSON encoding failed", err, log.ComponentHTTP, log.OpRender, nil)
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
