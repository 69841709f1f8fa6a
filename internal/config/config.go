// Package config loads template-eval configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by the caller)
//  2. Environment variables (TEMPLATE_EVAL_*)
//  3. Config file
//  4. Built-in defaults
//
// Config file search order when no path is given:
//  1. .template-eval.yaml in current directory
//  2. ~/.config/template-eval/config.yaml
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/template-eval/internal/response"
)

// Span modes select how the response parser locates the JSON object.
const (
	SpanGreedy   = response.SpanGreedy
	SpanBalanced = response.SpanBalanced
)

const envPrefix = "TEMPLATE_EVAL_"

// Config holds all template-eval configuration.
type Config struct {
	// LLM settings
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`

	// Evaluation settings
	Repetitions   int    `yaml:"repetitions"`
	Source        string `yaml:"source"`
	ReferencesDir string `yaml:"references_dir"`
	OutputDir     string `yaml:"output_dir"`
	SpanMode      string `yaml:"span_mode"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	temp := 0.0
	return &Config{
		Provider:    "openai",
		Model:       "gpt-4o",
		MaxTokens:   4096,
		Temperature: &temp,
		Repetitions: 1,
		Source:      "Stanford",
		OutputDir:   "results",
		SpanMode:    SpanGreedy,
	}
}

// Load reads configuration from path, or from the first config file found in
// the search locations when path is empty, then applies environment
// variables. An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		path, data, err = findConfigFile()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if data != nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid provider %q: must be openai or anthropic", c.Provider)
	}
	switch c.SpanMode {
	case SpanGreedy, SpanBalanced:
	default:
		return fmt.Errorf("invalid span_mode %q: must be %s or %s", c.SpanMode, SpanGreedy, SpanBalanced)
	}
	if c.Repetitions < 1 {
		return fmt.Errorf("invalid repetitions %d: must be at least 1", c.Repetitions)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("invalid max_tokens %d: must be at least 1", c.MaxTokens)
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	candidates := []string{".template-eval.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "template-eval", "config.yaml"))
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	return "", nil, fs.ErrNotExist
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Provider != "" {
		cfg.Provider = file.Provider
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.Temperature != nil {
		cfg.Temperature = file.Temperature
	}
	if file.Repetitions > 0 {
		cfg.Repetitions = file.Repetitions
	}
	if file.Source != "" {
		cfg.Source = file.Source
	}
	if file.ReferencesDir != "" {
		cfg.ReferencesDir = file.ReferencesDir
	}
	if file.OutputDir != "" {
		cfg.OutputDir = file.OutputDir
	}
	if file.SpanMode != "" {
		cfg.SpanMode = file.SpanMode
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins over the file.
func mergeEnv(cfg *Config) error {
	strs := map[string]*string{
		"PROVIDER":       &cfg.Provider,
		"MODEL":          &cfg.Model,
		"BASE_URL":       &cfg.BaseURL,
		"API_KEY":        &cfg.APIKey,
		"SOURCE":         &cfg.Source,
		"REFERENCES_DIR": &cfg.ReferencesDir,
		"OUTPUT_DIR":     &cfg.OutputDir,
		"SPAN_MODE":      &cfg.SpanMode,
	}
	for name, dst := range strs {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_TOKENS":  &cfg.MaxTokens,
		"REPETITIONS": &cfg.Repetitions,
	}
	for name, dst := range ints {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", envPrefix, name, v, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv(envPrefix + "TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sTEMPERATURE %q: %w", envPrefix, v, err)
		}
		cfg.Temperature = &f
	}

	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.SpanMode = strings.ToLower(strings.TrimSpace(cfg.SpanMode))

	// Provider-specific API key fallback
	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return nil
}
