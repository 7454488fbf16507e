package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kalambet/internmatch/internal/storage"
)

const preferencesKey = "preferences"

// Preferences steer which internships the candidate is shown.
type Preferences struct {
	Locations    []string `json:"locations" yaml:"locations"`
	CompanySizes []string `json:"companySizes" yaml:"companySizes"`
	Industries   []string `json:"industries" yaml:"industries"`
}

// DefaultPreferences apply until the candidate saves their own.
func DefaultPreferences() Preferences {
	return Preferences{
		Locations:    []string{"San Francisco, CA", "Seattle, WA", "New York, NY"},
		CompanySizes: []string{"Startup", "Mid-size", "Enterprise"},
		Industries:   []string{"Technology", "E-commerce", "SaaS"},
	}
}

// normalized trims every entry and drops blanks and repeats.
func (p Preferences) normalized() Preferences {
	return Preferences{
		Locations:    cleanList(p.Locations),
		CompanySizes: cleanList(p.CompanySizes),
		Industries:   cleanList(p.Industries),
	}
}

func cleanList(in []string) []string {
	out := []string{}
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// KV is the key-value storage preferences live in. Implemented by
// storage.Store.
type KV interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// PreferenceStore reads and writes the candidate's preferences.
type PreferenceStore struct {
	kv     KV
	logger *slog.Logger
}

func NewPreferenceStore(kv KV, logger *slog.Logger) *PreferenceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceStore{kv: kv, logger: logger}
}

// Get returns the saved preferences, or the defaults when none are saved or
// the saved value cannot be parsed.
func (s *PreferenceStore) Get(ctx context.Context) (Preferences, error) {
	raw, err := s.kv.GetValue(ctx, preferencesKey)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}
	var p Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("saved preferences are unreadable, using defaults", "error", err)
		return DefaultPreferences(), nil
	}
	return p.normalized(), nil
}

// Set normalizes p, saves it and returns what was saved.
func (s *PreferenceStore) Set(ctx context.Context, p Preferences) (Preferences, error) {
	p = p.normalized()
	b, err := json.Marshal(p)
	if err != nil {
		return Preferences{}, fmt.Errorf("marshalling preferences: %w", err)
	}
	if err := s.kv.SetValue(ctx, preferencesKey, string(b)); err != nil {
		return Preferences{}, fmt.Errorf("writing preferences: %w", err)
	}
	s.logger.Info("preferences updated",
		"locations", len(p.Locations), "company_sizes", len(p.CompanySizes), "industries", len(p.Industries))
	return p, nil
}

// Reset removes the saved preferences so the defaults apply again.
func (s *PreferenceStore) Reset(ctx context.Context) error {
	err := s.kv.DeleteValue(ctx, preferencesKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("resetting preferences: %w", err)
	}
	return nil
}
