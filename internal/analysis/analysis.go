// Package analysis produces suitability analyses for candidate profiles.
//
// The only Analyzer shipped today is Simulator, which waits a fixed delay and
// returns a score drawn by a pluggable Scorer together with fixed label sets.
// A real scoring backend implements Analyzer and can be wrapped with
// WithRetry and Metrics.Wrap without touching the profile store.
package analysis

import "context"

// Kind distinguishes the first analysis of an imported profile from a re-run.
type Kind string

const (
	KindImport    Kind = "import"
	KindReanalyze Kind = "reanalyze"
)

// Score bounds for every Result.
const (
	MinScore = 0
	MaxScore = 100
)

// Hint is what the analyzer knows about the profile being scored.
type Hint struct {
	Kind       Kind
	ProfileURL string
	Name       string
	Headline   string
	Skills     []string
}

// Result is one completed analysis.
type Result struct {
	SuitabilityScore   int
	MatchedInternships []string
	StrengthAreas      []string
	ImprovementAreas   []string
}

// Analyzer scores a profile. Implementations must honour ctx cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, hint Hint) (Result, error)
}

// AnalyzerFunc adapts a plain function to Analyzer.
type AnalyzerFunc func(ctx context.Context, hint Hint) (Result, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, hint Hint) (Result, error) {
	return f(ctx, hint)
}

// ClampScore forces s into [MinScore, MaxScore].
func ClampScore(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
