package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRepositories lists registered repositories.
func (s *server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.svc.Repositories(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, repos)
}

type syncRequest struct {
	RepoURL string `json:"repo_url"`
	Limit   int    `json:"limit,omitempty"`
}

// handleSync triggers an on-demand ingestion pass for one repository.
func (s *server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	if req.RepoURL == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"repo_url is required"})

		return
	}

	inserted, err := s.svc.SyncRepository(r.Context(), req.RepoURL, req.Limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"inserted": inserted,
	})
}

// handleStability returns the stability rollup for a repository branch.
func (s *server) handleStability(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"repo is required"})

		return
	}

	stats, err := s.svc.StabilityStats(
		r.Context(), repo, r.URL.Query().Get("branch"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handlePaginatedStability returns the filtered scenario listing.
func (s *server) handlePaginatedStability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	repo := q.Get("repo")
	if repo == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"repo is required"})

		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	flakyOnly, _ := strconv.ParseBool(q.Get("flaky_only"))

	paged, err := s.svc.PaginatedStability(
		r.Context(),
		repo,
		q.Get("branch"),
		q.Get("search"),
		page,
		size,
		flakyOnly,
	)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, paged)
}

// handleAnalytics returns the derived-signal bundle.
func (s *server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"repo is required"})

		return
	}

	analytics, err := s.svc.AdvancedAnalytics(
		r.Context(), repo, r.URL.Query().Get("branch"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

// handleTestStats returns the quality scorecard.
func (s *server) handleTestStats(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"repo is required"})

		return
	}

	stats, err := s.svc.TestStats(
		r.Context(), repo, r.URL.Query().Get("branch"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleTrends returns the test-count growth series.
func (s *server) handleTrends(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"repo is required"})

		return
	}

	trends, err := s.svc.Trends(
		r.Context(), repo, r.URL.Query().Get("branch"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, trends)
}

type scenarioConfigRequest struct {
	RepoURL                string `json:"repo_url"`
	FeatureFile            string `json:"feature_file"`
	ScenarioName           string `json:"scenario_name"`
	ExpectedDurationMillis int64  `json:"expected_duration_millis"`
}

// handleUpsertScenarioConfig stores an expected-duration threshold.
func (s *server) handleUpsertScenarioConfig(w http.ResponseWriter, r *http.Request) {
	var req scenarioConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	if req.RepoURL == "" || req.FeatureFile == "" || req.ScenarioName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			"repo_url, feature_file and scenario_name are required"})

		return
	}

	cfg := &store.ScenarioConfig{
		RepoID:                 req.RepoURL,
		FeatureFile:            req.FeatureFile,
		ScenarioName:           req.ScenarioName,
		ExpectedDurationMillis: req.ExpectedDurationMillis,
	}

	if err := s.svc.UpsertScenarioConfig(r.Context(), cfg); err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, cfg)
}
