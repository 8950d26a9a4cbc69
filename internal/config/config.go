package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "EMOLENS_"

// Config holds application configuration.
type Config struct {
	// AnalyzeURL is the base URL of the sentiment analysis endpoint.
	// Requests go to AnalyzeURL + "/analyze".
	AnalyzeURL string `json:"analyze_url"`

	// RelayURL is the base URL of the persistence relay service.
	RelayURL string `json:"relay_url"`

	// MaxHistory caps the local history log; oldest records are dropped first.
	MaxHistory int `json:"max_history"`

	// ResultPanelSeconds is how long a result panel stays on screen.
	ResultPanelSeconds int `json:"result_panel_seconds"`

	// BannerSeconds is how long an error banner stays before fading out.
	BannerSeconds int `json:"banner_seconds"`

	// FadeMillis is the banner fade-out duration before removal.
	FadeMillis int `json:"fade_millis"`

	// MaxTabs caps the tabs `emolens serve` keeps panels for; the least
	// recently used tab is dropped first.
	MaxTabs int `json:"max_tabs"`

	// Bind and Port are the listen address for `emolens serve`.
	Bind string `json:"bind"`
	Port int    `json:"port"`

	// DocStore selects the relay backend: "sqlite" (local) or "firestore".
	DocStore string `json:"doc_store"`

	FirestoreProject     string `json:"firestore_project,omitempty"`
	FirestoreCollection  string `json:"firestore_collection,omitempty"`
	FirestoreCredentials string `json:"firestore_credentials,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AnalyzeURL:          "http://127.0.0.1:5000",
		RelayURL:            "http://localhost:3000",
		MaxHistory:          100,
		ResultPanelSeconds:  10,
		BannerSeconds:       5,
		FadeMillis:          300,
		MaxTabs:             256,
		Bind:                "127.0.0.1",
		Port:                3000,
		DocStore:            "sqlite",
		FirestoreCollection: "sentiments",
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// ResultPanelTTL returns ResultPanelSeconds as a duration.
func (c *Config) ResultPanelTTL() time.Duration {
	return time.Duration(c.ResultPanelSeconds) * time.Second
}

// BannerTTL returns BannerSeconds as a duration.
func (c *Config) BannerTTL() time.Duration {
	return time.Duration(c.BannerSeconds) * time.Second
}

// Fade returns FadeMillis as a duration.
func (c *Config) Fade() time.Duration {
	return time.Duration(c.FadeMillis) * time.Millisecond
}

// Load loads configuration from baseDir/config.json, then applies overrides
// from baseDir/.env and finally from the process environment.
// Returns default config if neither file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.emolens.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}

	env, err := readDotEnv(filepath.Join(baseDir, ".env"))
	if err != nil {
		return nil, err
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	if err := ApplyEnv(cfg, env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readDotEnv reads a .env file. A missing file yields an empty map.
func readDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// ApplyEnv overrides cfg fields from EMOLENS_* keys in env.
// Unknown keys are ignored; malformed integers are an error.
func ApplyEnv(cfg *Config, env map[string]string) error {
	strs := map[string]*string{
		"ANALYZE_URL":           &cfg.AnalyzeURL,
		"RELAY_URL":             &cfg.RelayURL,
		"BIND":                  &cfg.Bind,
		"DOC_STORE":             &cfg.DocStore,
		"FIRESTORE_PROJECT":     &cfg.FirestoreProject,
		"FIRESTORE_COLLECTION":  &cfg.FirestoreCollection,
		"FIRESTORE_CREDENTIALS": &cfg.FirestoreCredentials,
		"LOG_LEVEL":             &cfg.LogLevel,
		"LOG_FORMAT":            &cfg.LogFormat,
	}
	ints := map[string]*int{
		"MAX_HISTORY":          &cfg.MaxHistory,
		"RESULT_PANEL_SECONDS": &cfg.ResultPanelSeconds,
		"BANNER_SECONDS":       &cfg.BannerSeconds,
		"FADE_MILLIS":          &cfg.FadeMillis,
		"MAX_TABS":             &cfg.MaxTabs,
		"PORT":                 &cfg.Port,
	}

	for name, dst := range strs {
		if v, ok := env[EnvPrefix+name]; ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	for name, dst := range ints {
		v, ok := env[EnvPrefix+name]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s must be an integer: %q", EnvPrefix, name, v)
		}
		*dst = n
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		AnalyzeURL:           pickString(overlay.AnalyzeURL, base.AnalyzeURL),
		RelayURL:             pickString(overlay.RelayURL, base.RelayURL),
		MaxHistory:           pickInt(overlay.MaxHistory, base.MaxHistory),
		ResultPanelSeconds:   pickInt(overlay.ResultPanelSeconds, base.ResultPanelSeconds),
		BannerSeconds:        pickInt(overlay.BannerSeconds, base.BannerSeconds),
		FadeMillis:           pickInt(overlay.FadeMillis, base.FadeMillis),
		MaxTabs:              pickInt(overlay.MaxTabs, base.MaxTabs),
		Bind:                 pickString(overlay.Bind, base.Bind),
		Port:                 pickInt(overlay.Port, base.Port),
		DocStore:             pickString(overlay.DocStore, base.DocStore),
		FirestoreProject:     pickString(overlay.FirestoreProject, base.FirestoreProject),
		FirestoreCollection:  pickString(overlay.FirestoreCollection, base.FirestoreCollection),
		FirestoreCredentials: pickString(overlay.FirestoreCredentials, base.FirestoreCredentials),
		LogLevel:             pickString(overlay.LogLevel, base.LogLevel),
		LogFormat:            pickString(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns:       pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:       pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pickString returns overlay if non-blank, else base.
func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// pickInt returns overlay if non-zero, else base.
func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
