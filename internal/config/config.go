// Package config loads memori settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vishalbelsare/memori-sub000/internal/plan"
	"github.com/vishalbelsare/memori-sub000/internal/search"
	"github.com/vishalbelsare/memori-sub000/internal/store"
)

// Config is the full runtime configuration.
type Config struct {
	DBPath          string `yaml:"db_path"`
	Driver          string `yaml:"driver"`
	DisableFullText bool   `yaml:"disable_full_text"`
	Namespace       string `yaml:"namespace"`

	Search      SearchConfig      `yaml:"search"`
	Planner     PlannerConfig     `yaml:"planner"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Logging     LoggingConfig     `yaml:"logging"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	StrategyWeight    float64 `yaml:"strategy_weight"`
	ImportanceWeight  float64 `yaml:"importance_weight"`
	RecencyWeight     float64 `yaml:"recency_weight"`
	RecencyWindowDays float64 `yaml:"recency_window_days"`
	ImportanceFloor   float64 `yaml:"importance_floor"`
	DefaultLimit      int     `yaml:"default_limit"`
	Parallel          bool    `yaml:"parallel"`
}

// PlannerConfig tunes the search plan resolver.
type PlannerConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ClassifierConfig selects the classifier backend.
type ClassifierConfig struct {
	// Provider is "heuristic", "openai" or "anthropic".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MaintenanceConfig struct {
	CleanupSchedule string `yaml:"cleanup_schedule"`
	MetricsAddr     string `yaml:"metrics_addr"`
}

// Provider names.
const (
	ProviderHeuristic = "heuristic"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath:    defaultDBPath(),
		Driver:    store.DriverModernc,
		Namespace: "default",
		Search: SearchConfig{
			StrategyWeight:    search.DefaultStrategyWeight,
			ImportanceWeight:  search.DefaultImportanceWeight,
			RecencyWeight:     search.DefaultRecencyWeight,
			RecencyWindowDays: search.DefaultRecencyWindowDays,
			ImportanceFloor:   search.DefaultImportanceFloor,
			DefaultLimit:      search.DefaultLimit,
		},
		Planner:    PlannerConfig{CacheTTL: plan.DefaultCacheTTL},
		Classifier: ClassifierConfig{Provider: ProviderHeuristic},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Maintenance: MaintenanceConfig{
			CleanupSchedule: "@hourly",
			MetricsAddr:     ":9464",
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "memori.db"
	}
	return filepath.Join(home, ".memori", "memori.db")
}

// envVarPattern matches ${VAR} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load builds a Config from defaults, an optional YAML file and the
// environment. An empty path skips the file. .env files in the working
// directory are loaded first and never override variables already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML onto Default. ${VAR} references are expanded from the
// environment; unset variables are left as written.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

func applyEnv(cfg *Config) {
	cfg.Classifier.Provider = strings.ToLower(cfg.Classifier.Provider)
	if v := os.Getenv("MEMORI_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MEMORI_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if cfg.Classifier.APIKey == "" || envVarPattern.MatchString(cfg.Classifier.APIKey) {
		switch cfg.Classifier.Provider {
		case ProviderOpenAI:
			cfg.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderAnthropic:
			cfg.Classifier.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	switch c.Driver {
	case store.DriverModernc, store.DriverMattn:
	default:
		return fmt.Errorf("config: unknown driver %q", c.Driver)
	}
	switch c.Classifier.Provider {
	case ProviderHeuristic, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unknown classifier provider %q", c.Classifier.Provider)
	}
	if c.Namespace == "" {
		return fmt.Errorf("config: namespace must not be empty")
	}
	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("config: search.default_limit must not be negative")
	}
	if c.Search.ImportanceFloor < 0 || c.Search.ImportanceFloor > 1 {
		return fmt.Errorf("config: search.importance_floor must be in [0,1]")
	}
	return nil
}

// SearchOptions converts the search section into engine options.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		StrategyWeight:    c.Search.StrategyWeight,
		ImportanceWeight:  c.Search.ImportanceWeight,
		RecencyWeight:     c.Search.RecencyWeight,
		RecencyWindowDays: c.Search.RecencyWindowDays,
		ImportanceFloor:   c.Search.ImportanceFloor,
		DefaultLimit:      c.Search.DefaultLimit,
		Parallel:          c.Search.Parallel,
	}
}
