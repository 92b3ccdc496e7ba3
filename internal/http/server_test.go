package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"scoreboard/internal/blob/memory"
	"scoreboard/internal/core"
	"scoreboard/internal/services"
)

type failingStore struct{ *memory.Store }

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func (failingStore) SetMany(context.Context, map[string][]byte) error { return errors.New("disk full") }

func newTestServer(t *testing.T) (*Server, *services.ScoreboardService) {
	t.Helper()
	svc := services.NewScoreboardService(memory.New(), nil, services.Options{})
	svc.Load(context.Background())
	srv, err := NewServer(":0", svc, Options{RateLimitPerMinute: 1000})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Family Scoreboard", "Kid 1", "Make Bed", "Reset Scoreboard for New Week", core.RolloverPrompt} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers not applied")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id not echoed")
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/app.js"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(t, srv, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestMutationsRenderBoard(t *testing.T) {
	srv, svc := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/kids/1/name", url.Values{"name": {"  Ada "}})
	if rr.Code != http.StatusOK {
		t.Fatalf("rename kid status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `value="Ada"`) {
		t.Fatal("board partial does not show the new name")
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventBoardRefresh) {
		t.Fatalf("missing refresh trigger: %q", rr.Header().Get("HX-Trigger"))
	}
	if got := svc.State().KidNames[1]; got != "Ada" {
		t.Fatalf("KidNames[1] = %q", got)
	}

	do(t, srv, http.MethodPost, "/tasks/2/value", url.Values{"value": {"4,25"}})
	if got := svc.State().Tasks[1].Value.StringFixed(2); got != "4.25" {
		t.Fatalf("task value = %s", got)
	}

	do(t, srv, http.MethodPost, "/tasks/1/name", url.Values{"name": {"Tidy Room"}})
	if got := svc.State().Tasks[0].Name; got != "Tidy Room" {
		t.Fatalf("task name = %q", got)
	}

	rr = do(t, srv, http.MethodPost, "/tasks", nil)
	if rr.Code != http.StatusOK || len(svc.State().Tasks) != 5 {
		t.Fatalf("add task: status=%d tasks=%d", rr.Code, len(svc.State().Tasks))
	}
	added := svc.State().Tasks[4]

	rr = do(t, srv, http.MethodPost, "/tasks/"+itoa64(added.ID)+"/delete", nil)
	if rr.Code != http.StatusOK || len(svc.State().Tasks) != 4 {
		t.Fatalf("remove task: status=%d tasks=%d", rr.Code, len(svc.State().Tasks))
	}
}

func TestToggleFromQueryAndForm(t *testing.T) {
	srv, svc := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/completions/toggle?kid=0&task=1&day=2&sub=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !svc.State().Completions.Flags(0, 1, 2)[1] {
		t.Fatal("flag not set")
	}

	do(t, srv, http.MethodPost, "/completions/toggle", url.Values{"kid": {"0"}, "task": {"1"}, "day": {"2"}, "sub": {"1"}})
	if svc.State().Completions.Flags(0, 1, 2)[1] {
		t.Fatal("second toggle should clear the flag")
	}
}

func TestErrorMapping(t *testing.T) {
	srv, svc := newTestServer(t)
	before := svc.State().Revision

	tests := []struct {
		name   string
		target string
		form   url.Values
		want   int
	}{
		{"kid out of range", "/kids/9/name", url.Values{"name": {"x"}}, http.StatusUnprocessableEntity},
		{"unknown task", "/tasks/99/name", url.Values{"name": {"x"}}, http.StatusUnprocessableEntity},
		{"non-numeric kid", "/kids/abc/name", url.Values{"name": {"x"}}, http.StatusBadRequest},
		{"toggle missing field", "/completions/toggle", url.Values{"kid": {"0"}}, http.StatusBadRequest},
		{"toggle bad day", "/completions/toggle", url.Values{"kid": {"0"}, "task": {"1"}, "day": {"7"}, "sub": {"0"}}, http.StatusUnprocessableEntity},
		{"toggle bad sub", "/completions/toggle", url.Values{"kid": {"0"}, "task": {"1"}, "day": {"0"}, "sub": {"3"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.target, tt.form)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if !strings.Contains(rr.Header().Get("HX-Trigger"), EventShowNotification) {
				t.Fatal("error responses should raise a notification")
			}
		})
	}
	if svc.State().Revision != before {
		t.Fatal("rejected requests must not change the board")
	}

	if rr := do(t, srv, http.MethodGet, "/tasks", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /tasks status=%d", rr.Code)
	}
}

func TestResetWeekRequiresConfirmation(t *testing.T) {
	srv, svc := newTestServer(t)
	do(t, srv, http.MethodPost, "/completions/toggle?kid=0&task=4&day=0&sub=0", nil)
	rev := svc.State().Revision

	rr := do(t, srv, http.MethodPost, "/week/reset", url.Values{})
	if rr.Code != http.StatusOK {
		t.Fatalf("unconfirmed reset status=%d", rr.Code)
	}
	if svc.State().Revision != rev || svc.State().Completions.Flags(0, 4, 0).Count() != 1 {
		t.Fatal("unconfirmed reset changed the board")
	}
	if rr.Header().Get("HX-Trigger") != "" {
		t.Fatalf("unconfirmed reset should not notify: %q", rr.Header().Get("HX-Trigger"))
	}

	rr = do(t, srv, http.MethodPost, "/week/reset", url.Values{"confirm": {"yes"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "added to monthly totals") {
		t.Fatalf("missing rollover notice: %q", rr.Header().Get("HX-Trigger"))
	}
	st := svc.State()
	if st.Completions.Flags(0, 4, 0).Count() != 0 {
		t.Fatal("completions not cleared")
	}
	if got := st.MonthlyFor(0).StringFixed(2); got != "5.00" {
		t.Fatalf("monthly[0] = %s, want 5.00", got)
	}
}

func TestAPIScoreboard(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/completions/toggle?kid=1&task=2&day=3&sub=0", nil)
	do(t, srv, http.MethodPost, "/completions/toggle?kid=1&task=2&day=3&sub=2", nil)

	rr := do(t, srv, http.MethodGet, "/api/scoreboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got apiScoreboard
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Kids) != 4 || len(got.Tasks) != 4 {
		t.Fatalf("kids=%d tasks=%d", len(got.Kids), len(got.Tasks))
	}
	if got.Kids[1].Daily[3] != "7.00" || got.Kids[1].Weekly != "7.00" || got.Kids[1].Cumulative != "7.00" {
		t.Fatalf("kid 1 = %+v", got.Kids[1])
	}
	if len(got.Completions) != 1 || got.Completions[0].Flags[2] != true {
		t.Fatalf("completions = %+v", got.Completions)
	}
}

func TestReadyReportsPendingSave(t *testing.T) {
	svc := services.NewScoreboardService(failingStore{memory.New()}, nil, services.Options{})
	srv, err := NewServer(":0", svc, Options{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Shutdown(context.Background())

	if rr := do(t, srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusOK {
		t.Fatalf("ready before any save: %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/kids/0/name", url.Values{"name": {"Zed"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("mutation should succeed in memory, got %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, `value="Zed"`) || strings.Contains(body, "saved") {
		t.Fatalf("board should show the rename and no save failure:\n%s", body)
	}
	if hx := rr.Header().Get("HX-Trigger"); strings.Contains(hx, `"type":"error"`) {
		t.Fatalf("save failure surfaced as an error notification: %s", hx)
	}
	if rr := do(t, srv, http.MethodGet, "/metrics", nil); !strings.Contains(rr.Body.String(), `"save_pending":true`) {
		t.Fatalf("metrics should report the pending save: %s", rr.Body.String())
	}
	if rr := do(t, srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with pending save: %d", rr.Code)
	}

	srvDown, err := NewServer(":0", svc, Options{Ready: func(context.Context) error { return errors.New("down") }})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srvDown.Shutdown(context.Background())
	if rr := do(t, srvDown, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with store down: %d", rr.Code)
	}
}

func TestRateLimitOnPost(t *testing.T) {
	svc := services.NewScoreboardService(memory.New(), nil, services.Options{})
	srv, err := NewServer(":0", svc, Options{RateLimitPerMinute: 2})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/tasks", nil); rr.Code != http.StatusOK {
			t.Fatalf("POST %d status=%d", i, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodPost, "/tasks", nil); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third POST status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/ui/board", nil); rr.Code != http.StatusOK {
		t.Fatalf("GET after limit status=%d", rr.Code)
	}
}

func itoa64(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
