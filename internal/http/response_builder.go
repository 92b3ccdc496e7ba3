// Package http serves the scoreboard UI and its JSON/health endpoints.
package http

import (
	"html/template"
	"net/http"

	json "github.com/goccy/go-json"
)

// Events raised through HX-Trigger. The page script turns
// show-notification into a native alert.
const (
	EventShowNotification = "show-notification"
	EventBoardRefresh     = "board:refresh"
)

// Notification kinds understood by the page script.
const (
	notifySuccess = "success"
	notifyError   = "error"
)

// htmxResponse collects the pieces of one htmx reply before it is sent.
type htmxResponse struct {
	status   int
	triggers map[string]any
	headers  http.Header
	body     []byte
}

func htmx() *htmxResponse {
	return &htmxResponse{status: http.StatusOK, triggers: map[string]any{}, headers: http.Header{}}
}

func (h *htmxResponse) withStatus(code int) *htmxResponse {
	h.status = code
	return h
}

func (h *htmxResponse) trigger(event string, payload any) *htmxResponse {
	h.triggers[event] = payload
	return h
}

// boardMoved tells listeners on the page which revision is now shown.
func (h *htmxResponse) boardMoved(revision uint64) *htmxResponse {
	return h.trigger(EventBoardRefresh, map[string]uint64{"revision": revision})
}

// notify raises show-notification. Errors stay on screen longer.
func (h *htmxResponse) notify(kind, message string) *htmxResponse {
	ms := 3000
	if kind == notifyError {
		ms = 5000
	}
	return h.trigger(EventShowNotification, map[string]any{
		"type":     kind,
		"message":  message,
		"duration": ms,
	})
}

func (h *htmxResponse) header(name, value string) *htmxResponse {
	h.headers.Set(name, value)
	return h
}

func (h *htmxResponse) html(body []byte) *htmxResponse {
	h.headers.Set("Content-Type", "text/html; charset=utf-8")
	h.body = body
	return h
}

func (h *htmxResponse) send(w http.ResponseWriter) {
	for name, values := range h.headers {
		w.Header()[name] = values
	}
	if len(h.triggers) > 0 {
		if raw, err := json.Marshal(h.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(h.status)
	if len(h.body) > 0 {
		_, _ = w.Write(h.body)
	}
}

// htmxError is a status with an escaped error fragment and a matching
// error notification.
func htmxError(status int, message string) *htmxResponse {
	return htmx().
		withStatus(status).
		notify(notifyError, message).
		html([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}
