package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/internmatch/internal/catalog"
	"github.com/kalambet/internmatch/internal/profile"
	"github.com/kalambet/internmatch/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Profiles ProfileService
	Runs     RunLister           // optional; if nil, /profiles/{id}/runs is not served
	Metrics  prometheus.Gatherer // optional; if nil, /metrics is not served
	Logger   *slog.Logger

	// Optional; each nil field leaves its routes unserved.
	Internships   *catalog.Catalog
	Notifications *catalog.Feed
	Preferences   *catalog.PreferenceStore
}

// NewAppHandler returns the router for the local profile API.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/status", handleStatus(deps))
	r.Get("/profiles", handleListProfiles(deps))
	r.Post("/profiles", handleImportProfile(deps))
	r.Get("/profiles/{id}", handleGetProfile(deps))
	r.Post("/profiles/{id}/reanalyze", handleReanalyzeProfile(deps))
	r.Post("/profiles/{id}/skills", handleAddSkill(deps))
	r.Delete("/profiles/{id}/skills/{skill}", handleRemoveSkill(deps))
	r.Get("/tasks/{id}", handleGetTask(deps))
	if deps.Runs != nil {
		r.Get("/profiles/{id}/runs", handleListRuns(deps))
	}
	if deps.Internships != nil {
		r.Get("/internships", handleListInternships(deps))
		r.Get("/internships/{id}", handleGetInternship(deps))
	}
	if deps.Notifications != nil {
		r.Get("/notifications", handleListNotifications(deps))
		r.Post("/notifications/read", handleMarkNotificationsRead(deps))
	}
	if deps.Preferences != nil {
		r.Get("/preferences", handleGetPreferences(deps))
		r.Put("/preferences", handleSetPreferences(deps))
		r.Delete("/preferences", handleResetPreferences(deps))
	}
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			Ready:     deps.Profiles.Ready(),
			Analyzing: deps.Profiles.IsAnalyzing(),
			Profiles:  deps.Profiles.Len(),
		})
	}
}

func handleListProfiles(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := deps.Profiles.List()
		if records == nil {
			records = []profile.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Profiles.Get(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleImportProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		// The analysis outlives the request.
		task, err := deps.Profiles.Import(context.WithoutCancel(r.Context()), req.URL, req.draft())
		if err != nil {
			storeError(w, err)
			return
		}

		deps.Logger.Info("profile import accepted", "id", task.ID(), "task", task.TaskID(), "url", req.URL)
		writeJSON(w, http.StatusAccepted, TaskResponse{ID: task.ID(), TaskID: task.TaskID(), Status: string(profile.TaskRunning)})
	}
}

func handleReanalyzeProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		task, err := deps.Profiles.Reanalyze(context.WithoutCancel(r.Context()), id)
		if err != nil {
			storeError(w, err)
			return
		}

		deps.Logger.Info("profile reanalysis accepted", "id", id, "task", task.TaskID())
		writeJSON(w, http.StatusAccepted, TaskResponse{ID: task.ID(), TaskID: task.TaskID(), Status: string(profile.TaskRunning)})
	}
}

func handleGetTask(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := deps.Profiles.Task(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskStatus(task))
	}
}

func handleAddSkill(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SkillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		rec, err := deps.Profiles.AddSkill(r.Context(), chi.URLParam(r, "id"), req.Skill)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleRemoveSkill(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Profiles.RemoveSkill(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "skill"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleListRuns(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Profiles.Get(id); err != nil {
			storeError(w, err)
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		runs, err := deps.Runs.ListAnalysisRuns(r.Context(), id, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list analysis runs: %v", err)
			return
		}
		if runs == nil {
			runs = []storage.AnalysisRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}
