// Package api exposes the profile store over a local HTTP API and an MCP
// server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kalambet/internmatch/internal/catalog"
	"github.com/kalambet/internmatch/internal/profile"
	"github.com/kalambet/internmatch/internal/storage"
)

// ProfileService is the subset of profile.Store used by the API layer.
type ProfileService interface {
	List() []profile.Record
	Get(id string) (profile.Record, error)
	Import(ctx context.Context, url string, draft profile.Draft) (*profile.Task, error)
	Reanalyze(ctx context.Context, id string) (*profile.Task, error)
	Task(taskID string) (*profile.Task, error)
	AddSkill(ctx context.Context, id, skill string) (profile.Record, error)
	RemoveSkill(ctx context.Context, id, skill string) (profile.Record, error)
	Len() int
	Ready() bool
	IsAnalyzing() bool
}

// RunLister returns the analysis history of a profile, newest first.
// Implemented by storage.Store.
type RunLister interface {
	ListAnalysisRuns(ctx context.Context, profileID string, limit int) ([]storage.AnalysisRun, error)
}

// ImportRequest is the body of POST /profiles. Fields other than URL are
// optional and fall back to placeholders.
type ImportRequest struct {
	URL        string               `json:"url"`
	Name       string               `json:"name,omitempty"`
	Headline   string               `json:"headline,omitempty"`
	Location   string               `json:"location,omitempty"`
	Education  []string             `json:"education,omitempty"`
	Experience []profile.Experience `json:"experience,omitempty"`
	Skills     []string             `json:"skills,omitempty"`
}

func (r ImportRequest) draft() profile.Draft {
	return profile.Draft{
		Name:       r.Name,
		Headline:   r.Headline,
		Location:   r.Location,
		Education:  r.Education,
		Experience: r.Experience,
		Skills:     r.Skills,
	}
}

// TaskResponse is returned when an analysis has been accepted. ID is the
// profile id; TaskID can be polled at GET /tasks/{id}.
type TaskResponse struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskStatusResponse is the body of GET /tasks/{id}.
type TaskStatusResponse struct {
	TaskID    string            `json:"task_id"`
	ProfileID string            `json:"profile_id"`
	Kind      string            `json:"kind"`
	Status    profile.TaskState `json:"status"`
	Error     string            `json:"error,omitempty"`
}

func taskStatus(t *profile.Task) TaskStatusResponse {
	state, err := t.State()
	resp := TaskStatusResponse{
		TaskID:    t.TaskID(),
		ProfileID: t.ID(),
		Kind:      string(t.Kind()),
		Status:    state,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// SkillRequest is the body of POST /profiles/{id}/skills.
type SkillRequest struct {
	Skill string `json:"skill"`
}

// NotificationsResponse is the body of GET /notifications.
type NotificationsResponse struct {
	Unread        int                    `json:"unread"`
	Notifications []catalog.Notification `json:"notifications"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Ready     bool `json:"ready"`
	Analyzing bool `json:"analyzing"`
	Profiles  int  `json:"profiles"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// storeError maps a profile store error onto an HTTP status.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrValidation):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, profile.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, profile.ErrBusy):
		httpError(w, http.StatusConflict, "busy", "%v", err)
	case errors.Is(err, profile.ErrNotLoaded):
		httpError(w, http.StatusServiceUnavailable, "unavailable", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
