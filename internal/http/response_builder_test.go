package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestHTMXResponse_PlainFragment(t *testing.T) {
	w := httptest.NewRecorder()
	htmx().withStatus(http.StatusCreated).header("X-Board", "1").html([]byte("<p>ok</p>")).send(w)

	if w.Code != http.StatusCreated || w.Body.String() != "<p>ok</p>" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Board") != "1" {
		t.Error("custom header dropped")
	}
	if _, ok := w.Header()["Hx-Trigger"]; ok {
		t.Error("HX-Trigger sent without any event")
	}
}

func TestHTMXResponse_Triggers(t *testing.T) {
	w := httptest.NewRecorder()
	htmx().boardMoved(7).notify(notifySuccess, "Week banked").send(w)

	var triggers map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if got := triggers[EventBoardRefresh]["revision"]; got != float64(7) {
		t.Errorf("revision = %v", got)
	}
	n := triggers[EventShowNotification]
	if n["type"] != "success" || n["message"] != "Week banked" || n["duration"] != float64(3000) {
		t.Errorf("notification = %v", n)
	}
}

func TestHTMXError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusTooManyRequests, http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		htmxError(status, "bad <input>").send(w)

		if w.Code != status {
			t.Errorf("status = %d, want %d", w.Code, status)
		}
		if !strings.Contains(w.Body.String(), "bad &lt;input&gt;") {
			t.Errorf("%d: message not escaped: %q", status, w.Body.String())
		}
		hx := w.Header().Get("HX-Trigger")
		if !strings.Contains(hx, `"type":"error"`) || !strings.Contains(hx, `"duration":5000`) {
			t.Errorf("%d: error notification = %q", status, hx)
		}
	}
}
