package http

import (
	"bytes"
	"errors"
	"net/http"

	"scoreboard/internal/core"
	"scoreboard/internal/log"
	"scoreboard/internal/services"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := newBoardPage(s.board.View())
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", page); err != nil {
		s.events.LogError(r.Context(), "Index template execution failed", err, log.ComponentTemplate, log.OpRender, nil)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleBoard renders the board partial that htmx swaps in place.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.writeBoard(w, r, s.board.View(), htmx())
}

func (s *Server) handleRenameKid(w http.ResponseWriter, r *http.Request) {
	kid, err := pathInt(r, "index")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	v, err := s.board.RenameKid(r.Context(), kid, p.Get("name"))
	s.writeMutation(w, r, v, err)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	_, v, err := s.board.AddTask(r.Context())
	s.writeMutation(w, r, v, err)
}

func (s *Server) handleRenameTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	v, err := s.board.RenameTask(r.Context(), id, p.Get("name"))
	s.writeMutation(w, r, v, err)
}

func (s *Server) handleSetTaskValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	v, err := s.board.SetTaskValue(r.Context(), id, p.Get("value"))
	s.writeMutation(w, r, v, err)
}

func (s *Server) handleRemoveTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.board.RemoveTask(r.Context(), id)
	s.writeMutation(w, r, v, err)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	tp, err := parseToggleParams(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.board.ToggleCompletion(r.Context(), tp.Kid, tp.Task, core.Day(tp.Day), tp.Sub)
	s.writeMutation(w, r, v, err)
}

// handleResetWeek banks the week. The page asks through hx-confirm and posts
// confirm=yes; anything else leaves the board untouched.
func (s *Server) handleResetWeek(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	out, err := s.board.ResetWeek(r.Context(), services.Confirmed(isConfirmed(p.Get("confirm"))))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := htmx()
	if out.Confirmed {
		resp.notify(notifySuccess, core.RolloverNotice).boardMoved(out.View.State.Revision)
	}
	s.writeBoard(w, r, out.View, resp)
}

func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return p, true
}

func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, v services.View, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeBoard(w, r, v, htmx().boardMoved(v.State.Revision))
}

func (s *Server) writeBoard(w http.ResponseWriter, r *http.Request, v services.View, resp *htmxResponse) {
	var buf bytes.Buffer
	page := newBoardPage(v)
	if err := s.templates.ExecuteTemplate(&buf, "board", page); err != nil {
		s.events.LogError(r.Context(), "Board template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithRevision(v.State.Revision))
		htmxError(http.StatusInternalServerError, "Could not render the scoreboard").send(w)
		return
	}
	resp.html(buf.Bytes()).send(w)
}

// writeError maps request and domain errors to 400/422 and everything else
// to 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, errMalformedRequest):
		log.FromContext(ctx).WarnContext(ctx, "Malformed request", log.FieldPath, r.URL.Path, log.FieldError, err)
		htmxError(http.StatusBadRequest, err.Error()).send(w)
	case services.IsInvalidInput(err):
		log.FromContext(ctx).WarnContext(ctx, "Rejected command", log.FieldPath, r.URL.Path, log.FieldError, err)
		htmxError(http.StatusUnprocessableEntity, err.Error()).send(w)
	default:
		s.events.LogError(ctx, "Request failed", err, log.ComponentHTTP, log.OpApply,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
		htmxError(http.StatusInternalServerError, "Something went wrong").send(w)
	}
}
