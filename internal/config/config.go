package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/internmatch/internal/analysis"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

// AnalysisConfig tunes the analysis simulator. Delays are Go duration strings.
type AnalysisConfig struct {
	ImportDelay    string
	ReanalyzeDelay string
	MinScore       int
	MaxScore       int // exclusive
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Analysis: AnalysisConfig{
			ImportDelay:    analysis.DefaultImportDelay.String(),
			ReanalyzeDelay: analysis.DefaultReanalyzeDelay.String(),
			MinScore:       70,
			MaxScore:       100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file and environment
// variables.
//
// The file lives at $XDG_CONFIG_HOME/internmatch/config.json (falling back to
// ~/.config). Environment variables (INTERNMATCH_*) override file values.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if _, _, err := c.Analysis.Delays(); err != nil {
		return err
	}
	a := c.Analysis
	if a.MinScore < analysis.MinScore || a.MaxScore > analysis.MaxScore+1 || a.MinScore >= a.MaxScore {
		return fmt.Errorf("invalid analysis score range [%d, %d): want 0 <= min < max <= 101", a.MinScore, a.MaxScore)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	return nil
}

// Delays parses the configured simulator delays.
func (a AnalysisConfig) Delays() (importDelay, reanalyzeDelay time.Duration, err error) {
	importDelay, err = parseDelay("analysis.import_delay", a.ImportDelay)
	if err != nil {
		return 0, 0, err
	}
	reanalyzeDelay, err = parseDelay("analysis.reanalyze_delay", a.ReanalyzeDelay)
	if err != nil {
		return 0, 0, err
	}
	return importDelay, reanalyzeDelay, nil
}

func parseDelay(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return d, nil
}
