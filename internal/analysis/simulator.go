package analysis

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Default simulated latencies.
const (
	DefaultImportDelay    = 3 * time.Second
	DefaultReanalyzeDelay = 2 * time.Second
)

// Scorer picks a suitability score for a profile.
type Scorer interface {
	Score(hint Hint) int
}

// RandomScorer draws scores uniformly from [min, max).
type RandomScorer struct {
	min, max int

	mu  sync.Mutex
	rnd *rand.Rand // nil uses the global source
}

// NewRandomScorer returns a scorer drawing from [min, max). A nil src uses the
// auto-seeded global source.
func NewRandomScorer(min, max int, src rand.Source) (*RandomScorer, error) {
	if min < MinScore || max > MaxScore+1 || min >= max {
		return nil, fmt.Errorf("invalid score range [%d, %d)", min, max)
	}
	s := &RandomScorer{min: min, max: max}
	if src != nil {
		s.rnd = rand.New(src)
	}
	return s, nil
}

func (s *RandomScorer) Score(Hint) int {
	span := s.max - s.min
	if s.rnd == nil {
		return s.min + rand.IntN(span)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.min + s.rnd.IntN(span)
}

// Labels are the fixed recommendation lists attached to a result.
type Labels struct {
	MatchedInternships []string
	StrengthAreas      []string
	ImprovementAreas   []string
}

var defaultLabels = map[Kind]Labels{
	KindImport: {
		MatchedInternships: []string{"Google PM Intern", "Microsoft PM Intern"},
		StrengthAreas:      []string{"Communication", "Leadership"},
		ImprovementAreas:   []string{"Technical Skills"},
	},
	KindReanalyze: {
		MatchedInternships: []string{"Updated Match 1", "Updated Match 2", "Updated Match 3"},
		StrengthAreas:      []string{"Updated Strength 1", "Updated Strength 2"},
		ImprovementAreas:   []string{"Updated Improvement 1"},
	},
}

// Simulator stands in for a scoring service: it sleeps for a fixed delay and
// then returns a scored result. It never fails unless ctx ends first.
type Simulator struct {
	scorer Scorer
	delays map[Kind]time.Duration
	labels map[Kind]Labels
}

// NewSimulator creates a Simulator with the given per-kind delays.
func NewSimulator(scorer Scorer, importDelay, reanalyzeDelay time.Duration) *Simulator {
	return &Simulator{
		scorer: scorer,
		delays: map[Kind]time.Duration{
			KindImport:    importDelay,
			KindReanalyze: reanalyzeDelay,
		},
		labels: defaultLabels,
	}
}

func (s *Simulator) Analyze(ctx context.Context, hint Hint) (Result, error) {
	labels, ok := s.labels[hint.Kind]
	if !ok {
		return Result{}, fmt.Errorf("unknown analysis kind %q", hint.Kind)
	}

	if d := s.delays[hint.Kind]; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return Result{
		SuitabilityScore:   ClampScore(s.scorer.Score(hint)),
		MatchedInternships: cloneStrings(labels.MatchedInternships),
		StrengthAreas:      cloneStrings(labels.StrengthAreas),
		ImprovementAreas:   cloneStrings(labels.ImprovementAreas),
	}, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
