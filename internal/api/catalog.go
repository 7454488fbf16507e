package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/internmatch/internal/catalog"
)

func handleListInternships(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := catalog.Filter{
			NewOnly:  r.URL.Query().Get("new") == "true",
			MinMatch: parseIntParam(r, "min_match", 0, 100),
		}
		writeJSON(w, http.StatusOK, deps.Internships.List(f))
	}
}

func handleGetInternship(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		it, ok := deps.Internships.Get(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "internship %q not found", id)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func handleListNotifications(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, catalog.DefaultFeedLimit)
		writeJSON(w, http.StatusOK, NotificationsResponse{
			Unread:        deps.Notifications.Unread(),
			Notifications: deps.Notifications.List(limit),
		})
	}
}

func handleMarkNotificationsRead(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := deps.Notifications.MarkAllRead()
		writeJSON(w, http.StatusOK, map[string]int{"marked": n})
	}
}

func handleGetPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Preferences.Get(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleSetPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req catalog.Preferences
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		saved, err := deps.Preferences.Set(r.Context(), req)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func handleResetPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Preferences.Reset(r.Context()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, catalog.DefaultPreferences())
	}
}
