// Package http serves the scoreboard UI and its JSON/health endpoints.
//
// This file implements utilities for parsing request data. Handlers accept
// form-encoded bodies from htmx, JSON bodies from scripts and query
// parameters from hx-post URLs, in that order of precedence.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// maxBodyBytes bounds every mutation request body.
const maxBodyBytes = 64 << 10

var errMalformedRequest = errors.New("malformed request")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	query       url.Values
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and keeps it for Parse.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
		query:       r.URL.Query(),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if p.err == nil && len(p.body) > maxBodyBytes {
			p.err = fmt.Errorf("%w: body larger than %d bytes", errMalformedRequest, maxBodyBytes)
		}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedRequest, err)
			return p.err
		}
		return nil
	}

	formData, err := url.ParseQuery(string(p.body))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedRequest, err)
		return p.err
	}
	p.formData = formData
	return nil
}

// Get returns a sanitized value from the JSON body, the form body or the
// query string.
func (p *RequestBodyParser) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Lookup is Get that also reports whether the key was present at all.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val)), true
		}
	}
	if p.formData != nil {
		if vals, ok := p.formData[key]; ok && len(vals) > 0 {
			return sanitizeInput(vals[0]), true
		}
	}
	if vals, ok := p.query[key]; ok && len(vals) > 0 {
		return sanitizeInput(vals[0]), true
	}
	return "", false
}

// Int reads a required integer field.
func (p *RequestBodyParser) Int(key string) (int, error) {
	raw, ok := p.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: missing %s", errMalformedRequest, key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", errMalformedRequest, key)
	}
	return n, nil
}

// Int64 reads a required 64-bit integer field.
func (p *RequestBodyParser) Int64(key string) (int64, error) {
	raw, ok := p.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: missing %s", errMalformedRequest, key)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", errMalformedRequest, key)
	}
	return n, nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// pathInt reads an integer path wildcard such as {index}.
func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errMalformedRequest, name)
	}
	return n, nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	n, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errMalformedRequest, name)
	}
	return n, nil
}

// toggleParams identifies one sub-completion checkbox.
type toggleParams struct {
	Kid  int
	Task int64
	Day  int
	Sub  int
}

func parseToggleParams(p *RequestBodyParser) (toggleParams, error) {
	var (
		tp  toggleParams
		err error
	)
	if tp.Kid, err = p.Int("kid"); err != nil {
		return tp, err
	}
	if tp.Task, err = p.Int64("task"); err != nil {
		return tp, err
	}
	if tp.Day, err = p.Int("day"); err != nil {
		return tp, err
	}
	if tp.Sub, err = p.Int("sub"); err != nil {
		return tp, err
	}
	return tp, nil
}

// isConfirmed accepts the values a form or script would send for yes.
func isConfirmed(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}
