package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lazypower/vitality/internal/cultivation"
	"github.com/lazypower/vitality/internal/engine"
	"github.com/lazypower/vitality/internal/environment"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/logging"
	"github.com/lazypower/vitality/internal/store"
	"github.com/lazypower/vitality/internal/vitality"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

func agentID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "agentID"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.State(r.Context(), agentID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	text, ok, err := s.engine.Context(r.Context(), agentID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"context":   text,
		"available": ok,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	text, ok, err := s.engine.Status(r.Context(), agentID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    text,
		"available": ok,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxHistoryLimit)
		}
	}
	if s.engine.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	cycles, err := s.engine.Cycles(agentID(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cycles == nil {
		cycles = []store.Cycle{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(cycles),
		"cycles": cycles,
	})
}

func (s *Server) handleCanModify(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		writeError(w, http.StatusBadRequest, "field parameter required")
		return
	}
	d, err := s.engine.CanModify(r.Context(), agentID(r), field)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	stage, caps, err := s.engine.Capabilities(r.Context(), agentID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stage":        stage,
		"stage_name":   cultivation.StageName(stage),
		"capabilities": caps,
	})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var in vitality.TurnInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id := agentID(r)
	res, err := s.engine.ProcessTurn(r.Context(), id, in)
	saved := true
	if err != nil {
		if !errors.Is(err, engine.ErrSaveFailed) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// The cycle ran; the host keeps going on the in-memory result.
		s.log.Warn("turn not persisted", logging.Agent(id), zap.Error(err))
		saved = false
	}

	g := res.State.Growth
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":         id,
		"saved":            saved,
		"changes":          res.Changes,
		"level":            res.State.ConsciousnessLevel,
		"stage":            g.CultivationStage,
		"stage_name":       cultivation.StageName(g.CultivationStage),
		"progress":         g.CultivationProgress,
		"experience_count": g.ExperienceCount,
		"reflection_count": g.ReflectionCount,
	})
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var edit vitality.Edit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if edit.Field == "" {
		writeError(w, http.StatusBadRequest, "field required")
		return
	}

	d, err := s.engine.Modify(r.Context(), agentID(r), edit)
	switch {
	case errors.Is(err, engine.ErrSaveFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var in goals.NewGoal
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Description) == "" {
		writeError(w, http.StatusBadRequest, "description required")
		return
	}

	g, err := s.engine.AddGoal(r.Context(), agentID(r), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.engine.Invalidate(agentID(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) handleRecordSessions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID  string                       `json:"agent_id"`
		Sessions []environment.SessionSummary `json:"sessions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.AgentID) == "" {
		writeError(w, http.StatusBadRequest, "agent_id required")
		return
	}

	if err := s.engine.RecordSessions(r.Context(), req.AgentID, req.Sessions); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":   "ok",
		"recorded": len(req.Sessions),
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Agents()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(ids),
		"agents": ids,
	})
}
