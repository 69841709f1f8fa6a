package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/giantswarm/template-eval/internal/reference"
)

// DefaultSource names the origin of reference templates in the evaluation prompt.
const DefaultSource = "Stanford"

// Pair is a system/user instruction pair.
type Pair struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// EvaluationInput holds everything the evaluation prompt is built from.
type EvaluationInput struct {
	GeneratedTemplate string
	Reference         reference.Template
	Specialty         string
	Condition         string
	// Source names where the reference template came from. Defaults to DefaultSource.
	Source string
}

type evaluationData struct {
	Source            string
	Specialty         string
	Condition         string
	OriginalContent   string
	GeneratedTemplate string
	Bands             []Band
}

// Evaluation builds the system and user instructions asking the model to judge
// how well the generated template covers the reference template.
func Evaluation(in EvaluationInput) (Pair, error) {
	content, err := FormatContent(reference.Extract(in.Reference))
	if err != nil {
		return Pair{}, err
	}

	source := in.Source
	if source == "" {
		source = DefaultSource
	}

	user, err := render(evaluationUserTemplate, evaluationData{
		Source:            source,
		Specialty:         in.Specialty,
		Condition:         in.Condition,
		OriginalContent:   content,
		GeneratedTemplate: in.GeneratedTemplate,
		Bands:             GradeBands,
	})
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		System: strings.TrimRight(evaluationSystemPrompt, "\n"),
		User:   user,
	}, nil
}

// FormatContent renders extracted content as indented JSON, the form in
// which it is embedded in the evaluation prompt.
func FormatContent(c reference.Content) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("prompt: encode original content: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
