package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// AnalysisRun is one completed analysis pass, kept as an append-only log.
type AnalysisRun struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profile_id"`
	Kind       string    `json:"kind"` // "import" or "reanalyze"
	Score      int       `json:"score"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
