// Package prompt composes the instructions sent to the model for template
// evaluation and component ranking.
//
// Composers are pure: the same inputs always produce the same text.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// Version metadata recorded alongside every result produced from these prompts.
const (
	EvaluationVersion     = "v8_structured_clinical_reasoning"
	EvaluationDescription = "Clinical reasoning combined with structured element-by-element mapping"

	RankingVersion     = "v1_clinical_importance"
	RankingDescription = "Ranks template components by clinical importance for e-consult decision making"
)

// EvaluationApproach lists the principles the evaluation prompt asks the model to apply.
var EvaluationApproach = []string{
	"Clinical equivalence over literal matching",
	"Implicit clinical understanding recognition",
	"Scope flexibility with clinical judgment",
	"Specialist utility focus",
	"Structured element-by-element mapping with reasoning",
	"Detailed coverage analysis with clinical justification",
}

//go:embed prompts/evaluation_system.md
var evaluationSystemPrompt string

//go:embed prompts/evaluation_user.md
var evaluationUserText string

//go:embed prompts/ranking.md
var rankingText string

// The prompt bodies contain literal JSON, so template actions use [[ ]].
var (
	evaluationUserTemplate = mustParse("evaluation_user", evaluationUserText)
	rankingTemplate        = mustParse("ranking", rankingText)
)

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Delims("[[", "]]").Option("missingkey=error").Parse(text))
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", t.Name(), err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
