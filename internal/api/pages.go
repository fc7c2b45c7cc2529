package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/ghostrev/internal/engine"
	"github.com/MikeSquared-Agency/ghostrev/internal/processor"
	"github.com/MikeSquared-Agency/ghostrev/internal/signals"
)

// openPage handles POST /api/v1/pages
func (s *Server) openPage(w http.ResponseWriter, r *http.Request) {
	var req processor.PageLoad
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	status, err := s.proc.OpenPage(r.Context(), req)
	if err != nil {
		writeProcessorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

// pageEvent handles POST /api/v1/pages/{pageID}/events
func (s *Server) pageEvent(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	var ev signals.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := s.proc.Dispatch(r.Context(), pageID, ev); err != nil {
		writeProcessorError(w, err)
		return
	}

	status, err := s.proc.PageStatus(r.Context(), pageID)
	if err != nil {
		writeProcessorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// pageStatus handles GET /api/v1/pages/{pageID}
func (s *Server) pageStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.proc.PageStatus(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		writeProcessorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// closePage handles DELETE /api/v1/pages/{pageID}
func (s *Server) closePage(w http.ResponseWriter, r *http.Request) {
	if err := s.proc.ClosePage(r.Context(), chi.URLParam(r, "pageID")); err != nil {
		writeProcessorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionRecord handles GET /api/v1/sessions/{sessionID}
func (s *Server) sessionRecord(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.proc.SessionRecord(r.Context(), chi.URLParam(r, "sessionID")))
}

// endSession handles DELETE /api/v1/sessions/{sessionID}
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if err := s.proc.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionPush handles GET /api/v1/sessions/{sessionID}/push
func (s *Server) sessionPush(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.hub.ServeSession(w, r, sessionID); err != nil {
		slog.Warn("push connection failed", "session_id", sessionID, "error", err)
	}
}

func writeProcessorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, processor.ErrPageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, processor.ErrPageExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, processor.ErrMissingURL), errors.Is(err, engine.ErrUnknownEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrPageClosed):
		writeError(w, http.StatusGone, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
