package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/template-eval/internal/config"
	"github.com/giantswarm/template-eval/internal/evaluator"
	"github.com/giantswarm/template-eval/internal/llm"
	"github.com/giantswarm/template-eval/internal/reference"
	"github.com/giantswarm/template-eval/internal/response"
	"github.com/giantswarm/template-eval/internal/telemetry"
)

// addModelFlags registers the judge model flags. Defaults come from the
// config file and environment, so the flags themselves default to empty.
func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("provider", "", "LLM provider: openai or anthropic (default from config: openai)")
	f.String("model", "", "Judge model name (default from config: gpt-4o)")
	f.String("base-url", "", "LLM API base URL (OpenAI-compatible or Anthropic)")
	f.String("api-key", "", "API key (or set OPENAI_API_KEY / ANTHROPIC_API_KEY)")
	f.Int("max-tokens", 0, "Maximum tokens per reply (default from config: 4096)")
	f.Float64("temperature", 0, "Sampling temperature (default from config: 0)")
	f.Int("repetitions", 0, "Number of evaluation repetitions (default from config: 1)")
	f.String("span-mode", "", "How replies are searched for JSON: greedy or balanced")
}

// addReferenceFlags registers the flags that select a reference template.
func addReferenceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("reference", "r", "", "Name of a reference template (see 'template-eval list')")
	f.String("reference-file", "", "Path to a reference template file (JSON or YAML)")
	f.String("references-dir", "", "External reference templates directory")
	f.String("specialty", "", "Medical specialty (overrides the reference's)")
	f.String("condition", "", "Clinical condition (overrides the reference's)")
	f.String("source", "", "Institution the reference templates come from (default: Stanford)")
}

// loadSettings loads the config file and environment, then applies the flags
// the user set explicitly.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	texts := map[string]*string{
		"provider":       &cfg.Provider,
		"model":          &cfg.Model,
		"base-url":       &cfg.BaseURL,
		"api-key":        &cfg.APIKey,
		"span-mode":      &cfg.SpanMode,
		"source":         &cfg.Source,
		"references-dir": &cfg.ReferencesDir,
		"output-dir":     &cfg.OutputDir,
	}
	for name, dst := range texts {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	ints := map[string]*int{
		"max-tokens":  &cfg.MaxTokens,
		"repetitions": &cfg.Repetitions,
	}
	for name, dst := range ints {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}
	if flags.Changed("temperature") {
		t, _ := flags.GetFloat64("temperature")
		cfg.Temperature = llm.Float64Ptr(t)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.SpanMode = strings.ToLower(strings.TrimSpace(cfg.SpanMode))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		slog.Debug("loaded config file", "path", cfg.ConfigFile)
	}
	return cfg, nil
}

// newLLMClient creates the judge model client described by cfg.
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	opts := []llm.Option{
		llm.WithModel(cfg.Model),
		llm.WithMaxTokens(cfg.MaxTokens),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.APIKey))
	}
	if cfg.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*cfg.Temperature))
	}
	return llm.New(cfg.Provider, opts...)
}

func newParser(cfg *config.Config) (*response.Parser, error) {
	find, err := response.SpanFinderFor(cfg.SpanMode)
	if err != nil {
		return nil, err
	}
	return response.NewParser(response.WithSpanFinder(find)), nil
}

func evaluatorConfig(cfg *config.Config) evaluator.Config {
	return evaluator.Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		Repetitions: cfg.Repetitions,
		Temperature: cfg.Temperature,
		Source:      cfg.Source,
	}
}

// startTelemetry initializes OTLP export when an endpoint is configured. The
// returned function flushes and stops it.
func startTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, func(), error) {
	tel, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
		Version:  rootCmd.Version,
	})
	if err != nil {
		return nil, nil, err
	}
	if tel.Enabled() {
		slog.Debug("telemetry enabled", "endpoint", cfg.OTELEndpoint)
	}
	return tel, func() { tel.Shutdown(context.Background()) }, nil
}

// newEvaluator wires the client, parser and telemetry for commands that call
// the judge model.
func newEvaluator(ctx context.Context, cfg *config.Config) (*evaluator.Evaluator, func(), error) {
	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	parser, err := newParser(cfg)
	if err != nil {
		return nil, nil, err
	}
	tel, stop, err := startTelemetry(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	ev := evaluator.New(client, evaluatorConfig(cfg),
		evaluator.WithParser(parser),
		evaluator.WithMetrics(tel.Metrics),
	)
	return ev, stop, nil
}

// loadReference resolves --reference or --reference-file and applies the
// specialty and condition overrides.
func loadReference(cmd *cobra.Command, cfg *config.Config) (*reference.Reference, error) {
	name, _ := cmd.Flags().GetString("reference")
	file, _ := cmd.Flags().GetString("reference-file")

	var ref *reference.Reference
	switch {
	case name != "" && file != "":
		return nil, fmt.Errorf("use either --reference or --reference-file, not both")
	case name != "":
		loaded, err := reference.Load(name, cfg.ReferencesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load reference template: %w", err)
		}
		ref = loaded
	case file != "":
		t, err := reference.LoadTemplateFile(file)
		if err != nil {
			return nil, err
		}
		ref = &reference.Reference{
			Name:     strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
			Template: t,
		}
	default:
		return nil, fmt.Errorf("a reference template is required (--reference or --reference-file)")
	}

	if s, _ := cmd.Flags().GetString("specialty"); s != "" {
		ref.Specialty = s
	}
	if c, _ := cmd.Flags().GetString("condition"); c != "" {
		ref.Condition = c
	}
	return ref, nil
}

// readInput reads path, or standard input when path is empty or "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
