package profile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kalambet/internmatch/internal/analysis"
	"github.com/kalambet/internmatch/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Mock persister ---

type mockPersister struct {
	mu   sync.Mutex
	data map[string]string

	getErr error
	setErr error
	sets   int
}

func newMockPersister() *mockPersister {
	return &mockPersister{data: make(map[string]string)}
}

func (m *mockPersister) GetValue(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *mockPersister) SetValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockPersister) failWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

func (m *mockPersister) raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// --- Mock analyzers ---

type fixedScorer int

func (f fixedScorer) Score(analysis.Hint) int { return int(f) }

// gatedAnalyzer blocks every Analyze call until release is closed.
type gatedAnalyzer struct {
	started chan analysis.Hint
	release chan struct{}
	score   int
}

func newGatedAnalyzer(score int) *gatedAnalyzer {
	return &gatedAnalyzer{
		started: make(chan analysis.Hint, 4),
		release: make(chan struct{}),
		score:   score,
	}
}

func (g *gatedAnalyzer) Analyze(ctx context.Context, h analysis.Hint) (analysis.Result, error) {
	g.started <- h
	select {
	case <-ctx.Done():
		return analysis.Result{}, ctx.Err()
	case <-g.release:
	}
	return analysis.Result{
		SuitabilityScore:   g.score,
		MatchedInternships: []string{"Gated Match"},
		StrengthAreas:      []string{"Patience"},
		ImprovementAreas:   []string{"Speed"},
	}, nil
}

// --- Helpers ---

func newTestStore(t *testing.T, p Persister, a analysis.Analyzer) *Store {
	t.Helper()
	n := 0
	return NewStore(Deps{
		Persist:     p,
		Analyzer:    a,
		NewID:       func() string { n++; return fmt.Sprintf("new-%d", n) },
		Connections: func() int { return 500 },
	})
}

func instantAnalyzer(t *testing.T) analysis.Analyzer {
	t.Helper()
	scorer, err := analysis.NewRandomScorer(70, 100, nil)
	if err != nil {
		t.Fatalf("NewRandomScorer: %v", err)
	}
	return analysis.NewSimulator(scorer, 0, 0)
}

func loadedStore(t *testing.T, p Persister, a analysis.Analyzer) *Store {
	t.Helper()
	s := newTestStore(t, p, a)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func waitTask(t *testing.T, task *Task) (Record, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

// --- Load ---

func TestLoad_EmptyStorageInstallsSeed(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))

	got := s.List()
	if len(got) != 2 {
		t.Fatalf("expected 2 seed records, got %d", len(got))
	}
	if got[0].Name != "Sarah Johnson" || got[1].Name != "Alex Chen" {
		t.Errorf("seed names = %q, %q", got[0].Name, got[1].Name)
	}
	if got[0].Analysis == nil || got[0].Analysis.SuitabilityScore != 95 {
		t.Errorf("seed analysis = %+v", got[0].Analysis)
	}
	if p.raw(stateKey) == "" {
		t.Error("seed was not persisted")
	}
	if !s.Ready() {
		t.Error("Ready() = false after Load")
	}
}

func TestLoad_CorruptStorageInstallsSeed(t *testing.T) {
	for _, raw := range []string{
		"{not json",
		`{"version":99,"profiles":[]}`,
		`"just a string"`,
		`[{"id":1}]`,
	} {
		t.Run(raw, func(t *testing.T) {
			p := newMockPersister()
			p.data[stateKey] = raw

			s := loadedStore(t, p, instantAnalyzer(t))
			if got := s.List(); len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
				t.Errorf("expected seed set, got %+v", got)
			}
			if p.raw(stateKey) == raw {
				t.Error("corrupt value was not replaced")
			}
		})
	}
}

func TestLoad_Idempotent(t *testing.T) {
	p := newMockPersister()
	first := loadedStore(t, p, instantAnalyzer(t)).List()
	afterFirst := p.raw(stateKey)

	second := loadedStore(t, p, instantAnalyzer(t)).List()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second load differs:\n%+v\n%+v", first, second)
	}
	if p.raw(stateKey) != afterFirst {
		t.Error("second load rewrote persisted state")
	}
	if p.sets != 1 {
		t.Errorf("SetValue calls = %d, want 1", p.sets)
	}
}

func TestLoad_ReadFailureIsReported(t *testing.T) {
	p := newMockPersister()
	p.getErr = errors.New("disk on fire")

	s := newTestStore(t, p, instantAnalyzer(t))
	err := s.Load(context.Background())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if s.Ready() {
		t.Error("Ready() = true after failed Load")
	}
	if p.sets != 0 {
		t.Error("seed must not overwrite storage that could not be read")
	}

	// The store stays usable: a retry after the fault clears succeeds.
	p.getErr = nil
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("retry Load: %v", err)
	}
	if len(s.List()) != 2 {
		t.Errorf("expected seed after retry, got %d records", len(s.List()))
	}
}

func TestLoad_SeedWriteFailure(t *testing.T) {
	p := newMockPersister()
	p.setErr = errors.New("read-only")

	s := newTestStore(t, p, instantAnalyzer(t))
	if err := s.Load(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if s.Ready() {
		t.Error("Ready() = true after failed seed write")
	}
}

func TestLoad_LegacyArray(t *testing.T) {
	p := newMockPersister()
	p.data[stateKey] = `[{"id":"7","name":"Legacy","skills":["Go"],"connections":3,"profileUrl":"linkedin.com/in/legacy",
		"aiAnalysis":{"suitabilityScore":88,"matchedInternships":["A"],"strengthAreas":["B"],"improvementAreas":["C"]}}]`

	s := loadedStore(t, p, instantAnalyzer(t))
	got := s.List()
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Analysis == nil || got[0].Analysis.SuitabilityScore != 88 {
		t.Errorf("legacy aiAnalysis not carried over: %+v", got[0].Analysis)
	}
}

func TestLoad_NormalizesRecords(t *testing.T) {
	p := newMockPersister()
	p.data[stateKey] = `{"version":1,"profiles":[
		{"id":"a","name":"First","profileUrl":"u1","analysis":{"suitabilityScore":140}},
		{"id":"a","name":"Duplicate","profileUrl":"u2"},
		{"id":"b","name":"Negative","profileUrl":"u3","connections":-4,"analysis":{"suitabilityScore":-3}}
	]}`

	s := loadedStore(t, p, instantAnalyzer(t))
	got := s.List()
	if len(got) != 2 {
		t.Fatalf("expected duplicate dropped, got %d records", len(got))
	}
	if got[0].Name != "First" {
		t.Errorf("first occurrence should win, got %q", got[0].Name)
	}
	if got[0].Analysis.SuitabilityScore != 100 {
		t.Errorf("score = %d, want clamped to 100", got[0].Analysis.SuitabilityScore)
	}
	if got[1].Analysis.SuitabilityScore != 0 || got[1].Connections != 0 {
		t.Errorf("record b = %+v", got[1])
	}
}

func TestLoad_EmptySetIsKept(t *testing.T) {
	p := newMockPersister()
	p.data[stateKey] = `{"version":1,"profiles":[]}`

	s := loadedStore(t, p, instantAnalyzer(t))
	if got := s.List(); len(got) != 0 {
		t.Errorf("expected empty set, got %d records", len(got))
	}
}

// --- AddProfile ---

func TestAddProfile_AppendsAnalyzedRecord(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))

	for i := 0; i < 20; i++ {
		before := len(s.List())
		task, err := s.AddProfile(context.Background(), fmt.Sprintf("https://linkedin.com/in/user-%d", i))
		if err != nil {
			t.Fatalf("AddProfile: %v", err)
		}
		rec, err := waitTask(t, task)
		if err != nil {
			t.Fatalf("task failed: %v", err)
		}

		after := s.List()
		if len(after) != before+1 {
			t.Fatalf("len = %d, want %d", len(after), before+1)
		}
		if after[len(after)-1].ID != rec.ID || rec.ID != task.ID() {
			t.Errorf("new record id mismatch: list %q, record %q, task %q", after[len(after)-1].ID, rec.ID, task.ID())
		}
		if rec.Analysis == nil {
			t.Fatal("new record has no analysis")
		}
		if sc := rec.Analysis.SuitabilityScore; sc < 70 || sc >= 100 {
			t.Errorf("score %d outside [70,100)", sc)
		}
	}
}

func TestAddProfile_PlaceholderFields(t *testing.T) {
	s := loadedStore(t, newMockPersister(), instantAnalyzer(t))

	task, err := s.AddProfile(context.Background(), "  linkedin.com/in/someone  ")
	if err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	rec, err := waitTask(t, task)
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}

	if rec.ProfileURL != "linkedin.com/in/someone" {
		t.Errorf("ProfileURL = %q", rec.ProfileURL)
	}
	if rec.Name != "New Candidate" || rec.Headline != "Extracted from LinkedIn Profile" {
		t.Errorf("placeholders = %q / %q", rec.Name, rec.Headline)
	}
	if rec.Connections != 500 {
		t.Errorf("Connections = %d, want 500", rec.Connections)
	}
	if len(rec.Skills) != 4 || len(rec.Experience) != 1 {
		t.Errorf("skills/experience = %v / %v", rec.Skills, rec.Experience)
	}
	if rec.Analysis.MatchedInternships[0] != "Google PM Intern" {
		t.Errorf("matched = %v", rec.Analysis.MatchedInternships)
	}
}

func TestImport_DraftOverridesPlaceholders(t *testing.T) {
	g := newGatedAnalyzer(90)
	close(g.release)
	s := loadedStore(t, newMockPersister(), g)

	draft := Draft{
		Name:     "Dana Park",
		Headline: "Backend Engineer",
		Skills:   []string{"Go", "SQL", "Go"},
	}
	task, err := s.Import(context.Background(), "linkedin.com/in/dana", draft)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	rec, err := waitTask(t, task)
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}

	hint := <-g.started
	if hint.Kind != analysis.KindImport || hint.Name != "Dana Park" {
		t.Errorf("hint = %+v", hint)
	}
	if rec.Name != "Dana Park" || rec.Headline != "Backend Engineer" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Location != "Location from LinkedIn" {
		t.Errorf("Location = %q, want placeholder", rec.Location)
	}
	if !reflect.DeepEqual(rec.Skills, []string{"Go", "SQL", "Go"}) {
		t.Errorf("Skills = %v (duplicates must be kept)", rec.Skills)
	}
}

func TestAddProfile_Validation(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))
	before := s.List()
	writes := p.sets

	for _, url := range []string{"", "   ", "\t\n"} {
		task, err := s.AddProfile(context.Background(), url)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("AddProfile(%q) err = %v, want ErrValidation", url, err)
		}
		if task != nil {
			t.Errorf("AddProfile(%q) returned a task", url)
		}
	}

	if !reflect.DeepEqual(before, s.List()) {
		t.Error("record set changed after validation failures")
	}
	if p.sets != writes {
		t.Error("validation failure wrote to storage")
	}
	if s.IsAnalyzing() {
		t.Error("IsAnalyzing() = true after validation failure")
	}
}

func TestAddProfile_NotLoaded(t *testing.T) {
	s := newTestStore(t, newMockPersister(), instantAnalyzer(t))

	_, err := s.AddProfile(context.Background(), "linkedin.com/in/x")
	if !errors.Is(err, ErrNotLoaded) || !errors.Is(err, ErrPersistence) {
		t.Errorf("err = %v, want ErrNotLoaded", err)
	}
	if s.IsAnalyzing() {
		t.Error("slot leaked after ErrNotLoaded")
	}
}

func TestAddProfile_BusyWhilePending(t *testing.T) {
	g := newGatedAnalyzer(85)
	s := loadedStore(t, newMockPersister(), g)

	task, err := s.AddProfile(context.Background(), "linkedin.com/in/first")
	if err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	<-g.started

	if !s.IsAnalyzing() {
		t.Error("IsAnalyzing() = false while analysis pending")
	}

	if _, err := s.AddProfile(context.Background(), "linkedin.com/in/second"); !errors.Is(err, ErrBusy) {
		t.Errorf("second AddProfile err = %v, want ErrBusy", err)
	}
	if _, err := s.Reanalyze(context.Background(), "1"); !errors.Is(err, ErrBusy) {
		t.Errorf("Reanalyze while pending err = %v, want ErrBusy", err)
	}
	if err := s.Load(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Load while pending err = %v, want ErrBusy", err)
	}
	if len(s.List()) != 2 {
		t.Error("record set changed before the pending analysis finished")
	}

	close(g.release)
	rec, err := waitTask(t, task)
	if err != nil {
		t.Fatalf("in-flight task failed: %v", err)
	}
	if rec.ProfileURL != "linkedin.com/in/first" || rec.Analysis.SuitabilityScore != 85 {
		t.Errorf("in-flight record corrupted: %+v", rec)
	}

	got := s.List()
	if len(got) != 3 || got[2].ProfileURL != "linkedin.com/in/first" {
		t.Errorf("list after completion = %+v", got)
	}
	if s.IsAnalyzing() {
		t.Error("IsAnalyzing() = true after completion")
	}
}

func TestAddProfile_SlotFreeWhenTaskDone(t *testing.T) {
	s := loadedStore(t, newMockPersister(), instantAnalyzer(t))

	for i := 0; i < 5; i++ {
		task, err := s.AddProfile(context.Background(), "linkedin.com/in/loop")
		if err != nil {
			t.Fatalf("iteration %d: AddProfile: %v", i, err)
		}
		<-task.Done()
	}
	if len(s.List()) != 7 {
		t.Errorf("len = %d, want 7", len(s.List()))
	}
}

func TestAddProfile_PersistFailureRollsBack(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))
	before := s.List()
	saved := p.raw(stateKey)

	p.failWrites(errors.New("disk full"))
	task, err := s.AddProfile(context.Background(), "linkedin.com/in/x")
	if err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if _, err := waitTask(t, task); !errors.Is(err, ErrPersistence) {
		t.Fatalf("task err = %v, want ErrPersistence", err)
	}

	if !reflect.DeepEqual(before, s.List()) {
		t.Error("in-memory set changed despite failed write")
	}
	if p.raw(stateKey) != saved {
		t.Error("persisted state changed despite failed write")
	}

	// Still usable afterwards.
	p.failWrites(nil)
	task, err = s.AddProfile(context.Background(), "linkedin.com/in/y")
	if err != nil {
		t.Fatalf("AddProfile after failure: %v", err)
	}
	if _, err := waitTask(t, task); err != nil {
		t.Fatalf("task after failure: %v", err)
	}
	if len(s.List()) != 3 {
		t.Errorf("len = %d, want 3", len(s.List()))
	}
}

func TestAddProfile_AnalysisCancelled(t *testing.T) {
	g := newGatedAnalyzer(80)
	s := loadedStore(t, newMockPersister(), g)

	ctx, cancel := context.WithCancel(context.Background())
	task, err := s.AddProfile(ctx, "linkedin.com/in/x")
	if err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	<-g.started
	cancel()

	_, err = waitTask(t, task)
	if !errors.Is(err, ErrAnalysis) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want ErrAnalysis wrapping context.Canceled", err)
	}
	if len(s.List()) != 2 {
		t.Error("cancelled analysis changed the record set")
	}
	if s.IsAnalyzing() {
		t.Error("slot leaked after cancellation")
	}
}

// --- Reanalyze ---

func TestReanalyze_ReplacesOnlyAnalysis(t *testing.T) {
	s := loadedStore(t, newMockPersister(), analysis.NewSimulator(fixedScorer(72), 0, 0))
	before, err := s.Get("2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	task, err := s.Reanalyze(context.Background(), "2")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	if task.ID() != "2" || task.Kind() != analysis.KindReanalyze {
		t.Errorf("task = %s/%s", task.ID(), task.Kind())
	}
	after, err := waitTask(t, task)
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}

	if after.Analysis.SuitabilityScore != 72 {
		t.Errorf("score = %d, want 72", after.Analysis.SuitabilityScore)
	}
	if after.Analysis.MatchedInternships[0] != "Updated Match 1" {
		t.Errorf("matched = %v", after.Analysis.MatchedInternships)
	}

	want := before
	want.Analysis = after.Analysis
	if !reflect.DeepEqual(want, after) {
		t.Errorf("non-analysis fields changed:\nbefore %+v\nafter  %+v", before, after)
	}

	list := s.List()
	if list[1].ID != "2" || !reflect.DeepEqual(list[1], after) {
		t.Error("record not updated in place")
	}
	if !reflect.DeepEqual(list[0].Analysis.MatchedInternships, []string{"Google PM Intern", "Microsoft Azure PM", "Meta Product Intern"}) {
		t.Error("unrelated record changed")
	}
}

func TestReanalyze_NotFound(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))
	writes := p.sets

	_, err := s.Reanalyze(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.ID != "nonexistent" {
		t.Errorf("error detail = %+v", se)
	}
	if s.IsAnalyzing() {
		t.Error("slot leaked after ErrNotFound")
	}
	if p.sets != writes {
		t.Error("failed reanalyze wrote to storage")
	}
}

// --- Round trip ---

func TestRoundTrip_ReloadYieldsSameSet(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))

	task, _ := s.AddProfile(context.Background(), "linkedin.com/in/a")
	waitTask(t, task)
	task, _ = s.Reanalyze(context.Background(), "1")
	waitTask(t, task)

	reloaded := loadedStore(t, p, instantAnalyzer(t))
	if !reflect.DeepEqual(s.List(), reloaded.List()) {
		t.Errorf("reloaded set differs:\n%+v\n%+v", s.List(), reloaded.List())
	}
}

func TestRoundTrip_SQLite(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}

	s := NewStore(Deps{Persist: db, Analyzer: instantAnalyzer(t), Runs: db})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	task, err := s.AddProfile(context.Background(), "linkedin.com/in/sqlite")
	if err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	rec, err := waitTask(t, task)
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	want := s.List()

	runs, err := db.ListAnalysisRuns(context.Background(), rec.ID, 10)
	if err != nil {
		t.Fatalf("ListAnalysisRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Kind != "import" || runs[0].Score != rec.Analysis.SuitabilityScore {
		t.Errorf("runs = %+v", runs)
	}
	db.Close()

	db2, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	s2 := NewStore(Deps{Persist: db2, Analyzer: instantAnalyzer(t)})
	if err := s2.Load(context.Background()); err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if !reflect.DeepEqual(want, s2.List()) {
		t.Errorf("record set not preserved across restart")
	}
}

// --- Snapshots ---

func TestList_ReturnsCopies(t *testing.T) {
	s := loadedStore(t, newMockPersister(), instantAnalyzer(t))

	got := s.List()
	got[0].Name = "Mutated"
	got[0].Skills[0] = "Mutated"
	got[0].Analysis.SuitabilityScore = 1

	fresh := s.List()
	if fresh[0].Name != "Sarah Johnson" || fresh[0].Skills[0] != "Product Strategy" || fresh[0].Analysis.SuitabilityScore != 95 {
		t.Errorf("store state mutated through List snapshot: %+v", fresh[0])
	}
}

func TestGet_NotFound(t *testing.T) {
	s := loadedStore(t, newMockPersister(), instantAnalyzer(t))
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTaskWait_ContextEnds(t *testing.T) {
	g := newGatedAnalyzer(80)
	s := loadedStore(t, newMockPersister(), g)

	task, err := s.AddProfile(context.Background(), "linkedin.com/in/x")
	if err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	<-g.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := task.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait err = %v, want DeadlineExceeded", err)
	}

	// The task itself keeps running and still completes.
	close(g.release)
	if _, err := waitTask(t, task); err != nil {
		t.Fatalf("task: %v", err)
	}
}

// --- Shutdown and run log ---

// blockingRecorder holds SaveAnalysisRun until release is closed.
type blockingRecorder struct {
	entered chan struct{}
	release chan struct{}

	mu   sync.Mutex
	runs []storage.AnalysisRun
}

func (b *blockingRecorder) SaveAnalysisRun(_ context.Context, r storage.AnalysisRun) error {
	close(b.entered)
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs = append(b.runs, r)
	return nil
}

func TestDrain_WaitsForRunLog(t *testing.T) {
	rec := &blockingRecorder{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewStore(Deps{
		Persist:  newMockPersister(),
		Analyzer: instantAnalyzer(t),
		Runs:     rec,
	})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	task, err := s.Reanalyze(context.Background(), "1")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	<-rec.entered

	if !s.IsAnalyzing() {
		t.Error("IsAnalyzing() = false while the run log write is pending")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain err = %v, want DeadlineExceeded", err)
	}

	close(rec.release)
	if err := s.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	rec.mu.Lock()
	n := len(rec.runs)
	rec.mu.Unlock()
	if n != 1 {
		t.Errorf("recorded runs = %d, want 1", n)
	}
	if _, err := waitTask(t, task); err != nil {
		t.Fatalf("task: %v", err)
	}
}

func TestDrain_Idle(t *testing.T) {
	s := loadedStore(t, newMockPersister(), instantAnalyzer(t))
	if err := s.Drain(context.Background()); err != nil {
		t.Errorf("Drain on idle store: %v", err)
	}
}

// --- Task lookup ---

func TestTask_StateTransitions(t *testing.T) {
	g := newGatedAnalyzer(81)
	s := loadedStore(t, newMockPersister(), g)

	task, err := s.Reanalyze(context.Background(), "2")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	<-g.started

	found, err := s.Task(task.TaskID())
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if found != task {
		t.Error("Task returned a different task")
	}
	if state, _ := found.State(); state != TaskRunning {
		t.Errorf("state = %q, want %q", state, TaskRunning)
	}

	close(g.release)
	if _, err := waitTask(t, task); err != nil {
		t.Fatalf("task: %v", err)
	}
	if state, err := found.State(); state != TaskSucceeded || err != nil {
		t.Errorf("state = %q, %v; want %q", state, err, TaskSucceeded)
	}
}

func TestTask_FailedStateCarriesError(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))
	p.failWrites(errors.New("disk full"))

	task, err := s.Reanalyze(context.Background(), "1")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	<-task.Done()

	state, err := task.State()
	if state != TaskFailed || !errors.Is(err, ErrPersistence) {
		t.Errorf("state = %q, %v; want %q with ErrPersistence", state, err, TaskFailed)
	}
}

func TestTask_UnknownAndEvicted(t *testing.T) {
	s := loadedStore(t, newMockPersister(), instantAnalyzer(t))
	if _, err := s.Task("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	first, err := s.Reanalyze(context.Background(), "1")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	<-first.Done()
	for i := 0; i < maxTrackedTasks; i++ {
		task, err := s.Reanalyze(context.Background(), "1")
		if err != nil {
			t.Fatalf("Reanalyze %d: %v", i, err)
		}
		<-task.Done()
	}
	if _, err := s.Task(first.TaskID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("oldest task still tracked: err = %v", err)
	}
}

// --- Observer ---

type recordingObserver struct {
	mu    sync.Mutex
	kinds []analysis.Kind
	names []string
}

func (o *recordingObserver) ProfileAnalyzed(kind analysis.Kind, rec Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
	o.names = append(o.names, rec.Name)
}

func TestObserver_SeesStoredAnalysesOnly(t *testing.T) {
	obs := &recordingObserver{}
	p := newMockPersister()
	s := NewStore(Deps{Persist: p, Analyzer: instantAnalyzer(t), Observer: obs})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	task, err := s.Reanalyze(context.Background(), "2")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	if _, err := waitTask(t, task); err != nil {
		t.Fatalf("task: %v", err)
	}

	p.failWrites(errors.New("disk full"))
	task, err = s.Reanalyze(context.Background(), "1")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	<-task.Done()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if !reflect.DeepEqual(obs.names, []string{"Alex Chen"}) {
		t.Errorf("observed = %v, want [Alex Chen]", obs.names)
	}
	if obs.kinds[0] != analysis.KindReanalyze {
		t.Errorf("kind = %q", obs.kinds[0])
	}
}

// --- Legacy key and Len ---

func TestLoad_MigratesLegacyKey(t *testing.T) {
	p := newMockPersister()
	p.data[legacyStateKey] = `[{"id":"9","name":"Old Browser","profileUrl":"linkedin.com/in/old",
		"aiAnalysis":{"suitabilityScore":77,"matchedInternships":[],"strengthAreas":[],"improvementAreas":[]}}]`

	s := loadedStore(t, p, instantAnalyzer(t))
	got := s.List()
	if len(got) != 1 || got[0].ID != "9" {
		t.Fatalf("expected legacy record, got %+v", got)
	}
	if got[0].Analysis == nil || got[0].Analysis.SuitabilityScore != 77 {
		t.Errorf("analysis = %+v", got[0].Analysis)
	}
	if p.raw(stateKey) == "" {
		t.Error("legacy records were not rewritten under the current key")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestLoad_UnreadableLegacyKeyInstallsSeed(t *testing.T) {
	p := newMockPersister()
	p.data[legacyStateKey] = `{broken`

	s := loadedStore(t, p, instantAnalyzer(t))
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want seed of 2", s.Len())
	}
}

func TestLoad_CurrentKeyWinsOverLegacy(t *testing.T) {
	p := newMockPersister()
	p.data[stateKey] = `{"version":1,"profiles":[]}`
	p.data[legacyStateKey] = `[{"id":"9","name":"Old","profileUrl":"u"}]`

	s := loadedStore(t, p, instantAnalyzer(t))
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

// --- Skills ---

func TestAddSkill(t *testing.T) {
	p := newMockPersister()
	s := loadedStore(t, p, instantAnalyzer(t))
	sets := p.sets

	rec, err := s.AddSkill(context.Background(), "2", "  Roadmapping ")
	if err != nil {
		t.Fatalf("AddSkill: %v", err)
	}
	if last := rec.Skills[len(rec.Skills)-1]; last != "Roadmapping" {
		t.Errorf("last skill = %q, want trimmed Roadmapping", last)
	}
	if p.sets != sets+1 {
		t.Errorf("SetValue calls = %d, want %d", p.sets, sets+1)
	}

	again, err := s.AddSkill(context.Background(), "2", "Roadmapping")
	if err != nil {
		t.Fatalf("AddSkill duplicate: %v", err)
	}
	if len(again.Skills) != len(rec.Skills) {
		t.Errorf("duplicate skill added: %v", again.Skills)
	}
	if p.sets != sets+1 {
		t.Error("duplicate skill rewrote storage")
	}
}

func TestAddSkill_Errors(t *testing.T) {
	g := newGatedAnalyzer(80)
	s := loadedStore(t, newMockPersister(), g)

	if _, err := s.AddSkill(context.Background(), "1", "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank skill err = %v, want ErrValidation", err)
	}
	if _, err := s.AddSkill(context.Background(), "missing", "Go"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing record err = %v, want ErrNotFound", err)
	}

	task, err := s.Reanalyze(context.Background(), "1")
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	<-g.started
	if _, err := s.AddSkill(context.Background(), "1", "Go"); !errors.Is(err, ErrBusy) {
		t.Errorf("edit during analysis err = %v, want ErrBusy", err)
	}
	close(g.release)
	if _, err := waitTask(t, task); err != nil {
		t.Fatalf("task: %v", err)
	}
}

func TestRemoveSkill(t *testing.T) {
	s := loadedStore(t, newMockPersister(), instantAnalyzer(t))

	rec, err := s.RemoveSkill(context.Background(), "1", "SQL")
	if err != nil {
		t.Fatalf("RemoveSkill: %v", err)
	}
	want := []string{"Product Strategy", "Data Analysis", "User Research", "Python", "A/B Testing"}
	if !reflect.DeepEqual(rec.Skills, want) {
		t.Errorf("skills = %v, want %v", rec.Skills, want)
	}

	if _, err := s.RemoveSkill(context.Background(), "1", "Cobol"); err != nil {
		t.Errorf("removing absent skill: %v", err)
	}
	got, _ := s.Get("1")
	if !reflect.DeepEqual(got.Skills, want) {
		t.Errorf("stored skills = %v, want %v", got.Skills, want)
	}
}
