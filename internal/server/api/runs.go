// Package api provides HTTP API handlers for stored benchmark runs.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/arcam/internal/store"
)

// RunHandler handles HTTP requests for benchmark run resources.
type RunHandler struct {
	store *store.Store
}

// NewRunHandler creates a new RunHandler with the given store.
func NewRunHandler(s *store.Store) *RunHandler {
	return &RunHandler{store: s}
}

// ServeHTTP routes /api/runs, /api/runs/summary and /api/runs/{id}.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	case "summary":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.summary(w, r)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type runResponse struct {
	ID         string  `json:"id"`
	Filter     string  `json:"filter"`
	Backend    string  `json:"backend"`
	Resolution string  `json:"resolution"`
	Transforms string  `json:"transforms"`
	Build      string  `json:"build"`
	Frames     int     `json:"frames"`
	MeanMs     float64 `json:"mean_ms"`
	StdDevMs   float64 `json:"stddev_ms"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at,omitempty"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

type runDetailResponse struct {
	runResponse
	Timings []store.FrameTiming `json:"timings"`
}

type summaryResponse struct {
	Summaries []store.Summary `json:"summaries"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(run *store.Run) runResponse {
	resp := runResponse{
		ID:         run.ID,
		Filter:     run.Filter,
		Backend:    run.Backend,
		Resolution: run.Resolution,
		Transforms: run.Transforms,
		Build:      run.Build,
		Frames:     run.Frames,
		MeanMs:     run.MeanMs,
		StdDevMs:   run.StdDevMs,
		StartedAt:  run.StartedAt.Format(time.RFC3339),
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/runs.
func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.Runs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{Runs: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		response.Runs = append(response.Runs, toResponse(run))
	}

	writeJSON(w, http.StatusOK, response)
}

// summary handles GET /api/runs/summary.
func (h *RunHandler) summary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.Runs().Summaries()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize runs")
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}

	writeJSON(w, http.StatusOK, summaryResponse{Summaries: summaries})
}

// get handles GET /api/runs/{id} and includes the frame timings.
func (h *RunHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	timings, err := h.store.Runs().Frames(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get frame timings")
		return
	}
	if timings == nil {
		timings = []store.FrameTiming{}
	}

	writeJSON(w, http.StatusOK, runDetailResponse{runResponse: toResponse(run), Timings: timings})
}

// delete handles DELETE /api/runs/{id}.
func (h *RunHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Runs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
