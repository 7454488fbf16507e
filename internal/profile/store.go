// Package profile owns the set of candidate profiles: it loads them from
// storage, seeds a first run, and applies analysis results one at a time.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/internmatch/internal/analysis"
	"github.com/kalambet/internmatch/internal/storage"
)

// Persister is the key-value storage the Store writes its record set to.
// Implemented by storage.Store. GetValue returns storage.ErrNotFound for a
// missing key.
type Persister interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
}

// RunRecorder receives one entry per completed analysis.
// Implemented by storage.Store.
type RunRecorder interface {
	SaveAnalysisRun(ctx context.Context, r storage.AnalysisRun) error
}

// Observer is told about every analysis that completed and was stored.
// Implemented by catalog.Feed.
type Observer interface {
	ProfileAnalyzed(kind analysis.Kind, rec Record)
}

// Deps holds the Store's collaborators. Persist and Analyzer are required.
type Deps struct {
	Persist  Persister
	Analyzer analysis.Analyzer
	Runs     RunRecorder // optional
	Observer Observer    // optional

	NewID       func() string // defaults to UUIDv4
	Connections func() int    // connection count for imported profiles; defaults to [100,1100)
	Now         func() time.Time
	Logger      *slog.Logger
}

// Store is the single source of truth for profile records within a process.
// At most one mutation (load, import or reanalyze) is in flight at a time; a
// second one fails with ErrBusy instead of queueing.
type Store struct {
	persist     Persister
	analyzer    analysis.Analyzer
	runs        RunRecorder
	observer    Observer
	newID       func() string
	connections func() int
	now         func() time.Time
	logger      *slog.Logger

	busy     atomic.Bool
	inflight sync.WaitGroup

	tasksMu sync.Mutex
	tasks   map[string]*Task
	order   []string // task ids, oldest first

	mu      sync.RWMutex
	records []Record
	loaded  bool
}

// NewStore creates an unloaded Store. Call Load before mutating it.
func NewStore(deps Deps) *Store {
	s := &Store{
		persist:     deps.Persist,
		analyzer:    deps.Analyzer,
		runs:        deps.Runs,
		observer:    deps.Observer,
		newID:       deps.NewID,
		connections: deps.Connections,
		now:         deps.Now,
		logger:      deps.Logger,
		tasks:       make(map[string]*Task),
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	if s.connections == nil {
		s.connections = func() int { return rand.IntN(1000) + 100 }
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Load reads the saved record set. A missing or unreadable entry is replaced
// by the seed profiles, which are written back. A storage read failure is
// returned as ErrPersistence and leaves the store unloaded.
func (s *Store) Load(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return &Error{Op: "load", Kind: ErrBusy}
	}
	defer s.busy.Store(false)

	records, err := s.readState(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records = records
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("profiles loaded", "count", len(records))
	return nil
}

func (s *Store) readState(ctx context.Context) ([]Record, error) {
	raw, err := s.persist.GetValue(ctx, stateKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s.migrateLegacy(ctx)
	case err != nil:
		s.logger.Error("reading saved profiles", "error", err)
		return nil, &Error{Op: "load", Kind: ErrPersistence, Err: err}
	}

	records, err := decodeState(raw)
	if err != nil {
		s.logger.Warn("saved profiles are unreadable, installing seed data", "error", err)
		return s.installSeed(ctx)
	}
	return normalize(records, s.logger), nil
}

// migrateLegacy adopts a record array saved under the old key, rewriting it
// in the versioned format. Without one the seed is installed.
func (s *Store) migrateLegacy(ctx context.Context) ([]Record, error) {
	raw, err := s.persist.GetValue(ctx, legacyStateKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Info("no saved profiles, installing seed data")
		return s.installSeed(ctx)
	case err != nil:
		s.logger.Error("reading legacy profiles", "error", err)
		return nil, &Error{Op: "load", Kind: ErrPersistence, Err: err}
	}

	records, err := decodeState(raw)
	if err != nil {
		s.logger.Warn("legacy profiles are unreadable, installing seed data", "error", err)
		return s.installSeed(ctx)
	}
	records = normalize(records, s.logger)
	if err := s.write(ctx, records); err != nil {
		return nil, &Error{Op: "load", Kind: ErrPersistence, Err: err}
	}
	s.logger.Info("migrated legacy profiles", "key", legacyStateKey, "count", len(records))
	return records, nil
}

func (s *Store) installSeed(ctx context.Context) ([]Record, error) {
	records := seedRecords()
	if err := s.write(ctx, records); err != nil {
		return nil, &Error{Op: "load", Kind: ErrPersistence, Err: err}
	}
	return records, nil
}

// write replaces the persisted record set wholesale.
func (s *Store) write(ctx context.Context, records []Record) error {
	raw, err := encodeState(records)
	if err != nil {
		return err
	}
	if err := s.persist.SetValue(ctx, stateKey, raw); err != nil {
		return fmt.Errorf("writing profiles: %w", err)
	}
	return nil
}

// List returns a copy of all records in insertion order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.records, id); i >= 0 {
		return s.records[i].clone(), nil
	}
	return Record{}, &Error{Op: "get", Kind: ErrNotFound, ID: id}
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IsAnalyzing reports whether a mutation is in flight.
func (s *Store) IsAnalyzing() bool {
	return s.busy.Load()
}

// Ready reports whether Load has completed successfully.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// AddProfile imports the profile at url with placeholder fields.
func (s *Store) AddProfile(ctx context.Context, url string) (*Task, error) {
	return s.Import(ctx, url, Draft{})
}

// Import validates url, claims the analysis slot and starts analyzing a new
// profile built from draft. The record is appended and persisted when the
// returned task completes. ctx bounds the analysis, not the call.
func (s *Store) Import(ctx context.Context, url string, draft Draft) (*Task, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, &Error{Op: "add", Kind: ErrValidation, Err: errors.New("profile URL is required")}
	}
	if err := s.claim("add"); err != nil {
		return nil, err
	}

	rec := draft.newRecord(s.newID(), url, s.connections())
	task := newTask(rec.ID, analysis.KindImport)
	hint := analysis.Hint{
		Kind:       analysis.KindImport,
		ProfileURL: rec.ProfileURL,
		Name:       rec.Name,
		Headline:   rec.Headline,
		Skills:     cloneStrings(rec.Skills),
	}

	s.start(ctx, task, "add", hint, func(records []Record, a *Analysis) ([]Record, Record, error) {
		rec.Analysis = a
		return append(records, rec), rec, nil
	})
	return task, nil
}

// Reanalyze starts a new analysis for the record with the given id. When the
// task completes only the record's analysis has changed.
func (s *Store) Reanalyze(ctx context.Context, id string) (*Task, error) {
	if err := s.claim("reanalyze"); err != nil {
		return nil, err
	}

	current, err := s.Get(id)
	if err != nil {
		s.busy.Store(false)
		return nil, &Error{Op: "reanalyze", Kind: ErrNotFound, ID: id}
	}

	task := newTask(id, analysis.KindReanalyze)
	hint := analysis.Hint{
		Kind:       analysis.KindReanalyze,
		ProfileURL: current.ProfileURL,
		Name:       current.Name,
		Headline:   current.Headline,
		Skills:     current.Skills,
	}

	s.start(ctx, task, "reanalyze", hint, func(records []Record, a *Analysis) ([]Record, Record, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, Record{}, &Error{Op: "reanalyze", Kind: ErrNotFound, ID: id}
		}
		records[i].Analysis = a
		return records, records[i], nil
	})
	return task, nil
}

// claim takes the single mutation slot. The caller must release it.
func (s *Store) claim(op string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return &Error{Op: op, Kind: ErrBusy}
	}
	if !s.Ready() {
		s.busy.Store(false)
		return &Error{Op: op, Kind: ErrNotLoaded}
	}
	return nil
}

// Task returns a task started by Import or Reanalyze. Only the most recent
// tasks are kept.
func (s *Store) Task(taskID string) (*Task, error) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	if t, ok := s.tasks[taskID]; ok {
		return t, nil
	}
	return nil, &Error{Op: "task", Kind: ErrNotFound, ID: taskID}
}

// Drain waits until every started task has finished its bookkeeping, or ctx
// ends.
func (s *Store) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddSkill appends skill to a record's skills. Surrounding space is trimmed
// and a skill the record already has leaves it unchanged.
func (s *Store) AddSkill(ctx context.Context, id, skill string) (Record, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return Record{}, &Error{Op: "add skill", Kind: ErrValidation, ID: id, Err: errors.New("skill is required")}
	}
	return s.edit(ctx, "add skill", id, func(r *Record) bool {
		if slices.Contains(r.Skills, skill) {
			return false
		}
		r.Skills = append(r.Skills, skill)
		return true
	})
}

// RemoveSkill drops skill from a record's skills. Removing a skill the record
// lacks is a no-op.
func (s *Store) RemoveSkill(ctx context.Context, id, skill string) (Record, error) {
	return s.edit(ctx, "remove skill", id, func(r *Record) bool {
		i := slices.Index(r.Skills, skill)
		if i < 0 {
			return false
		}
		r.Skills = slices.Delete(r.Skills, i, i+1)
		return true
	})
}

// edit applies a synchronous change to one record under the mutation slot.
// change reports whether it modified the record.
func (s *Store) edit(ctx context.Context, op, id string, change func(*Record) bool) (Record, error) {
	if err := s.claim(op); err != nil {
		return Record{}, err
	}
	defer s.busy.Store(false)

	records := s.List()
	i := indexOf(records, id)
	if i < 0 {
		return Record{}, &Error{Op: op, Kind: ErrNotFound, ID: id}
	}
	if !change(&records[i]) {
		return records[i], nil
	}
	if err := s.write(ctx, records); err != nil {
		return Record{}, &Error{Op: op, Kind: ErrPersistence, ID: id, Err: err}
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	s.logger.Info("profile updated", "op", op, "id", id)
	return records[i].clone(), nil
}

type applyFunc func(records []Record, a *Analysis) (next []Record, changed Record, err error)

func (s *Store) start(ctx context.Context, task *Task, op string, hint analysis.Hint, apply applyFunc) {
	s.track(task)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.run(ctx, task, op, hint, apply)
	}()
}

func (s *Store) track(task *Task) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	s.tasks[task.TaskID()] = task
	s.order = append(s.order, task.TaskID())
	if len(s.order) > maxTrackedTasks {
		delete(s.tasks, s.order[0])
		s.order = s.order[1:]
	}
}

// run performs the analysis, persists the updated set and publishes it. The
// in-memory set only changes after the write succeeds. The run log and the
// observer see the result while the slot is still held; the slot is released
// before the task completes, so a caller woken by the task may mutate again.
func (s *Store) run(ctx context.Context, task *Task, op string, hint analysis.Hint, apply applyFunc) {
	started := s.now()
	rec, err := s.analyzeAndApply(ctx, task, op, hint, apply)
	if err != nil {
		s.busy.Store(false)
		s.logger.Warn("profile analysis failed", "op", op, "id", task.ID(), "error", err)
		task.finish(Record{}, err)
		return
	}

	s.logger.Info("profile analysis complete", "op", op, "id", rec.ID, "score", rec.Analysis.SuitabilityScore)
	s.recordRun(ctx, rec, hint.Kind, started)
	if s.observer != nil {
		s.observer.ProfileAnalyzed(hint.Kind, rec.clone())
	}
	s.busy.Store(false)
	task.finish(rec, nil)
}

func (s *Store) analyzeAndApply(ctx context.Context, task *Task, op string, hint analysis.Hint, apply applyFunc) (Record, error) {
	res, err := s.analyzer.Analyze(ctx, hint)
	if err != nil {
		return Record{}, &Error{Op: op, Kind: ErrAnalysis, ID: task.ID(), Err: err}
	}
	a := &Analysis{
		SuitabilityScore:   analysis.ClampScore(res.SuitabilityScore),
		MatchedInternships: res.MatchedInternships,
		StrengthAreas:      res.StrengthAreas,
		ImprovementAreas:   res.ImprovementAreas,
	}

	next, rec, err := apply(s.List(), a)
	if err != nil {
		return Record{}, err
	}

	// The analysis is done; don't let a cancelled caller abort the write.
	if err := s.write(context.WithoutCancel(ctx), next); err != nil {
		return Record{}, &Error{Op: op, Kind: ErrPersistence, ID: task.ID(), Err: err}
	}

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
	return rec.clone(), nil
}

func (s *Store) recordRun(ctx context.Context, rec Record, kind analysis.Kind, started time.Time) {
	if s.runs == nil {
		return
	}
	run := storage.AnalysisRun{
		ID:         uuid.New().String(),
		ProfileID:  rec.ID,
		Kind:       string(kind),
		Score:      rec.Analysis.SuitabilityScore,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if err := s.runs.SaveAnalysisRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("recording analysis run", "id", rec.ID, "error", err)
	}
}

func indexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
