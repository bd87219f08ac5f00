package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/evaluate"
	"github.com/abhisek/supertutor/internal/session"
	"github.com/abhisek/supertutor/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// sessionError maps controller errors onto HTTP statuses.
func (s *Server) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrBlankPrompt), errors.Is(err, session.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrGenerationInFlight),
		errors.Is(err, session.ErrStaleGeneration),
		errors.Is(err, session.ErrNotStaged),
		errors.Is(err, session.ErrActivityLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// controller resolves the session for the authenticated user.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) *session.Controller {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return nil
	}
	c, err := s.sessions.get(r.Context(), u)
	if err != nil {
		s.logger.Error("loading session failed", zap.String("user", u.ID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "could not load your courses, try again shortly")
		return nil
	}
	return c
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
	}
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	tok, exp, err := s.deps.Auth.Issue(auth.User{ID: strings.TrimSpace(req.UserID), DisplayName: req.DisplayName})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": tok, "expiresAt": exp.UTC().Format(time.RFC3339)})
}

type modeInfo struct {
	Mode        course.Mode `json:"mode"`
	Description string      `json:"description"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"subjects": s.deps.Bank.Subjects(),
		"goals":    s.deps.Bank.Goals(),
		"modes": []modeInfo{
			{course.ModeGenerative, "A complete three-module course generated for any subject."},
			{course.ModeStaged, "A studio blueprint and opening mission; later missions adapt to your answers."},
			{course.ModeCurated, "A hand-picked course for one of the catalog subjects."},
		},
		"generationAvailable": s.deps.Generator.Available(),
	})
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"courses":        c.Courses(),
		"activeCourseId": c.ActiveCourseID(),
	})
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
		Mode   string `json:"mode"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, ok := course.ParseMode(strings.TrimSpace(req.Mode))
	if !ok {
		s.sessionError(w, r, session.ErrUnknownMode)
		return
	}
	crs, err := c.GenerateCourse(r.Context(), req.Prompt, mode)
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"course": crs,
		"sync":   c.SyncStatus(),
	})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	crs, err := c.Course(chi.URLParam(r, "courseID"))
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crs)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	if err := c.SwitchCourse(r.Context(), chi.URLParam(r, "courseID")); err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activeCourseId": c.ActiveCourseID(),
		"sync":           c.SyncStatus(),
	})
}

func (s *Server) handleAdvanceStage(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	mod, err := c.AdvanceStage(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"module": mod,
		"sync":   c.SyncStatus(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	var req struct {
		Response *string `json:"response"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	courseID, moduleID, activityID := chi.URLParam(r, "courseID"), chi.URLParam(r, "moduleID"), chi.URLParam(r, "activityID")
	if a, ok := c.Activity(courseID, moduleID, activityID); ok && !evaluate.Interactive(a) {
		s.sessionError(w, r, session.ErrActivityLocked)
		return
	}
	response := c.Draft(activityID)
	if req.Response != nil {
		response = *req.Response
	}

	sub, found, err := c.SubmitAnswer(r.Context(), courseID, moduleID, activityID, response)
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submission": sub,
		"sync":       c.SyncStatus(),
	})
}

func (s *Server) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c.SetDraft(chi.URLParam(r, "activityID"), req.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	p, err := c.Progress(r.URL.Query().Get("courseId"))
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	u := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       u,
		"onboarding": c.Onboarding(),
		"profile":    c.Profile(),
	})
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	var req store.Onboarding
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FocusArea) == "" && strings.TrimSpace(req.CustomFocus) == "" {
		writeError(w, http.StatusBadRequest, "choose a focus area or describe your own")
		return
	}
	if err := c.SaveOnboarding(r.Context(), req); err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"onboarding": c.Onboarding(),
		"sync":       c.SyncStatus(),
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	writeJSON(w, http.StatusOK, c.SyncStatus())
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	if c == nil {
		return
	}
	if err := c.Sync(r.Context()); err != nil {
		if errors.Is(err, session.ErrClosed) {
			s.sessionError(w, r, err)
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, c.SyncStatus())
		return
	}
	writeJSON(w, http.StatusOK, c.SyncStatus())
}
