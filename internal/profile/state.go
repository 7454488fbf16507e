package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kalambet/internmatch/internal/analysis"
)

// stateKey is the key-value entry holding the whole record set.
const stateKey = "profiles"

// legacyStateKey held a bare record array before the versioned envelope.
// It is read only when stateKey is absent.
const legacyStateKey = "linkedinProfiles"

// stateVersion tags the persisted envelope.
const stateVersion = 1

type state struct {
	Version  int      `json:"version"`
	Profiles []Record `json:"profiles"`
}

// legacyRecord accepts the unversioned array format, which named the
// analysis field "aiAnalysis".
type legacyRecord struct {
	Record
	AIAnalysis *Analysis `json:"aiAnalysis,omitempty"`
}

func encodeState(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(state{Version: stateVersion, Profiles: records})
	if err != nil {
		return "", fmt.Errorf("marshalling profiles: %w", err)
	}
	return string(b), nil
}

func decodeState(raw string) ([]Record, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var legacy []legacyRecord
		if err := json.Unmarshal([]byte(trimmed), &legacy); err != nil {
			return nil, fmt.Errorf("parsing legacy profile array: %w", err)
		}
		records := make([]Record, len(legacy))
		for i, l := range legacy {
			records[i] = l.Record
			if records[i].Analysis == nil {
				records[i].Analysis = l.AIAnalysis
			}
		}
		return records, nil
	}

	var st state
	if err := json.Unmarshal([]byte(trimmed), &st); err != nil {
		return nil, fmt.Errorf("parsing profile state: %w", err)
	}
	if st.Version != stateVersion {
		return nil, fmt.Errorf("unsupported profile state version %d", st.Version)
	}
	if st.Profiles == nil {
		return []Record{}, nil
	}
	return st.Profiles, nil
}

// normalize enforces the record-set invariants on data read from storage:
// ids are present and unique (first occurrence wins), connections are
// non-negative and scores lie in [0,100].
func normalize(records []Record, logger *slog.Logger) []Record {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.New().String()
			logger.Warn("saved profile had no id, assigned one", "id", r.ID, "name", r.Name)
		}
		if seen[r.ID] {
			logger.Warn("dropping saved profile with duplicate id", "id", r.ID, "name", r.Name)
			continue
		}
		seen[r.ID] = true
		if r.Connections < 0 {
			r.Connections = 0
		}
		if r.Analysis != nil {
			if s := analysis.ClampScore(r.Analysis.SuitabilityScore); s != r.Analysis.SuitabilityScore {
				logger.Warn("clamping out-of-range suitability score", "id", r.ID, "score", r.Analysis.SuitabilityScore)
				r.Analysis.SuitabilityScore = s
			}
		}
		out = append(out, r)
	}
	return out
}
