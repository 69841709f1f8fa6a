package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/template-eval/internal/prompt"
)

// isolate keeps config discovery away from the developer's files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseEvaluationCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, newParseCmd(), `Here you go: {"a": 1, "b": [1,2,],}`, "evaluation")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1, "b": [1, 2]}`, out)
}

func TestParseCommandFromFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1} and {"b": 2}`), 0o644))

	out, err := execute(t, newParseCmd(), "", "ranking", "--span-mode", "balanced", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, out)
}

func TestParseCommandStrict(t *testing.T) {
	isolate(t)

	out, err := execute(t, newParseCmd(), "no json here", "ranking")
	require.NoError(t, err)
	assert.Contains(t, out, "Failed to parse ranking response")

	_, err = execute(t, newParseCmd(), "no json here", "evaluation", "--strict")
	assert.ErrorContains(t, err, "reply could not be parsed: No JSON found in response")
}

func TestPromptEvaluateCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, newPromptCmd(), "1. Fever <pattern>",
		"evaluate", "--reference", "infectious-disease-fuo", "--source", "UCSF", "--json")
	require.NoError(t, err)

	var pair prompt.Pair
	require.NoError(t, json.Unmarshal([]byte(out), &pair))
	assert.Contains(t, pair.User, "original UCSF template for Infectious Disease - Fever of unknown origin")
	assert.Contains(t, pair.User, "1. Fever <pattern>")
	assert.Contains(t, out, "Fever <pattern>")
}

func TestPromptEvaluateCommandRequiresReference(t *testing.T) {
	isolate(t)

	_, err := execute(t, newPromptCmd(), "x", "evaluate")
	assert.ErrorContains(t, err, "a reference template is required")
}

func TestPromptRankCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, newPromptCmd(), "", "rank", "--component", "Fever pattern", "--component", "", "--component", "Travel history ")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Fever pattern\n2. Travel history \n")
	assert.Contains(t, out, "Rank ALL 2 components")

	out, err = execute(t, newPromptCmd(), "", "rank", "--reference", "pulmonology-ild", "--specialty", "Chest medicine")
	require.NoError(t, err)
	assert.Contains(t, out, "Rank ALL 12 components")
	assert.Contains(t, out, "Chest medicine")

	_, err = execute(t, newPromptCmd(), "", "rank")
	assert.ErrorContains(t, err, "no components to rank")
}

func TestLoadSettingsFlagOverrides(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".template-eval.yaml"), []byte("model: from-file\nrepetitions: 2\n"), 0o644))

	cmd := &cobra.Command{Use: "test"}
	addModelFlags(cmd)
	require.NoError(t, cmd.Flags().Set("provider", "Anthropic"))
	require.NoError(t, cmd.Flags().Set("temperature", "0.5"))
	require.NoError(t, cmd.Flags().Set("span-mode", "balanced"))

	cfg, err := loadSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "from-file", cfg.Model)
	assert.Equal(t, 2, cfg.Repetitions)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, 0.5, *cfg.Temperature)
	assert.Equal(t, "balanced", cfg.SpanMode)

	require.NoError(t, cmd.Flags().Set("repetitions", "0"))
	_, err = loadSettings(cmd)
	assert.ErrorContains(t, err, "invalid repetitions")
}

func TestEvaluatorConfigFromSettings(t *testing.T) {
	isolate(t)

	cmd := &cobra.Command{Use: "test"}
	addModelFlags(cmd)
	require.NoError(t, cmd.Flags().Set("model", "judge"))

	cfg, err := loadSettings(cmd)
	require.NoError(t, err)

	ec := evaluatorConfig(cfg)
	assert.Equal(t, "judge", ec.Model)
	assert.Equal(t, "openai", ec.Provider)
	assert.Equal(t, "Stanford", ec.Source)

	client, err := newLLMClient(cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}
