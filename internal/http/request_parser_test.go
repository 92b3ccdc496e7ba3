package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newParser(t *testing.T, target, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		key         string
		want        string
		wantJSON    bool
	}{
		{"form", "/", "application/x-www-form-urlencoded", "name=Make+Bed", "name", "Make Bed", false},
		{"json string", "/", "application/json", `{"name":"Walk Dog"}`, "name", "Walk Dog", true},
		{"json number", "/", "application/json", `{"kid":2}`, "kid", "2", true},
		{"query fallback", "/?day=3", "", "", "day", "3", false},
		{"body wins over query", "/?sub=0", "application/x-www-form-urlencoded", "sub=2", "sub", "2", false},
		{"control chars stripped", "/", "application/x-www-form-urlencoded", "name=%00Ada%07%7F", "name", "Ada", false},
		{"spaces kept as typed", "/", "application/x-www-form-urlencoded", "name=++Ada+Lovelace+", "name", "  Ada Lovelace ", false},
		{"missing", "/", "application/x-www-form-urlencoded", "a=b", "name", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.target, tt.contentType, tt.body)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON = %v", p.IsJSON())
			}
		})
	}
}

func TestRequestBodyParserMalformed(t *testing.T) {
	p := newParser(t, "/", "application/json", `{"name":`)
	if err := p.Parse(); !errors.Is(err, errMalformedRequest) {
		t.Fatalf("Parse err = %v, want malformed", err)
	}

	big := strings.Repeat("a", maxBodyBytes+10)
	p = newParser(t, "/", "application/x-www-form-urlencoded", "name="+big)
	if err := p.Parse(); !errors.Is(err, errMalformedRequest) {
		t.Fatalf("oversized body err = %v", err)
	}
}

func TestParseToggleParams(t *testing.T) {
	p := newParser(t, "/?kid=1&task=22&day=6&sub=2", "", "")
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	got, err := parseToggleParams(p)
	if err != nil {
		t.Fatalf("parseToggleParams: %v", err)
	}
	if got != (toggleParams{Kid: 1, Task: 22, Day: 6, Sub: 2}) {
		t.Fatalf("got %+v", got)
	}

	p = newParser(t, "/?kid=1&task=x&day=6&sub=2", "", "")
	_ = p.Parse()
	if _, err := parseToggleParams(p); !errors.Is(err, errMalformedRequest) {
		t.Fatalf("err = %v, want malformed", err)
	}
}

func TestIsConfirmed(t *testing.T) {
	for _, yes := range []string{"yes", "YES", " y ", "true", "1"} {
		if !isConfirmed(yes) {
			t.Errorf("isConfirmed(%q) = false", yes)
		}
	}
	for _, no := range []string{"", "no", "n", "0", "maybe"} {
		if isConfirmed(no) {
			t.Errorf("isConfirmed(%q) = true", no)
		}
	}
}

func TestRequestBodyParserIntToleratesSpaces(t *testing.T) {
	p := newParser(t, "/", "application/x-www-form-urlencoded", "kid=+2+&task=+7&blank=+")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n, err := p.Int("kid"); err != nil || n != 2 {
		t.Errorf("Int(kid) = %d, %v; want 2", n, err)
	}
	if n, err := p.Int64("task"); err != nil || n != 7 {
		t.Errorf("Int64(task) = %d, %v; want 7", n, err)
	}
	if _, err := p.Int("blank"); !errors.Is(err, errMalformedRequest) {
		t.Errorf("Int(blank) err = %v, want malformed", err)
	}
}
