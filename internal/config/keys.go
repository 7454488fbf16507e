package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "INTERNMATCH_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "INTERNMATCH_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "INTERNMATCH_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "analysis.import_delay", typ: kDuration, env: "INTERNMATCH_ANALYSIS_IMPORT_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Analysis.ImportDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Analysis.ImportDelay },
	},
	{
		key: "analysis.reanalyze_delay", typ: kDuration, env: "INTERNMATCH_ANALYSIS_REANALYZE_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Analysis.ReanalyzeDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Analysis.ReanalyzeDelay },
	},
	{
		key: "analysis.min_score", typ: kInt, env: "INTERNMATCH_ANALYSIS_MIN_SCORE",
		apply:   func(cfg *Config, v any) { cfg.Analysis.MinScore = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.MinScore },
	},
	{
		key: "analysis.max_score", typ: kInt, env: "INTERNMATCH_ANALYSIS_MAX_SCORE",
		apply:   func(cfg *Config, v any) { cfg.Analysis.MaxScore = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.MaxScore },
	},
}

// Durations are stored as strings and checked by Config.validate.
func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString, kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString, kDuration:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
