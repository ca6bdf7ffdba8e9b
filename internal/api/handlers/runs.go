package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/screener/backend/internal/results"
	"github.com/wonny/screener/backend/pkg/logger"
)

// RunsHandler exposes persisted run history
type RunsHandler struct {
	repo   *results.Repository
	logger *logger.Logger
}

// NewRunsHandler creates the runs handler
func NewRunsHandler(repo *results.Repository, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		repo:   repo,
		logger: log.WithField("handler", "runs"),
	}
}

// List returns recent run ids
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	ids, err := h.repo.ListRunIDs(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("List runs failed")
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"run_ids": ids})
}

// Get returns one stored run
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	result, err := h.repo.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, results.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.WithError(err).Error("Get run failed")
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
