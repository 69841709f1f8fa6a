package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/template-eval/internal/reference"
)

func TestPromptsLoaded(t *testing.T) {
	assert.NotEmpty(t, evaluationSystemPrompt)
	assert.NotEmpty(t, evaluationUserText)
	assert.NotEmpty(t, rankingText)
}

func sampleReference(t *testing.T) reference.Template {
	t.Helper()
	tmpl, err := reference.Parse([]byte(`[{"In your clinical question, or current note, please include information on": ["fever history"]}, {"Clinical Pearls": {"consider sepsis": {}}}]`))
	require.NoError(t, err)
	return tmpl
}

func TestEvaluation(t *testing.T) {
	pair, err := Evaluation(EvaluationInput{
		GeneratedTemplate: "1. Fever onset and pattern\n2. Recent travel",
		Reference:         sampleReference(t),
		Specialty:         "Infectious Disease",
		Condition:         "Fever",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(pair.System, "You are a medical template evaluator"))
	assert.Contains(t, pair.System, "**BINARY EVALUATION:**")
	assert.False(t, strings.HasSuffix(pair.System, "\n"))

	assert.True(t, strings.HasPrefix(pair.User,
		"Evaluate this generated template against the original Stanford template for Infectious Disease - Fever,"))
	assert.Contains(t, pair.User, "GENERATED TEMPLATE TO EVALUATE:\n1. Fever onset and pattern\n2. Recent travel\n")
	assert.Contains(t, pair.User, `"overall_grade": "A|B|C|D|F"`)
	assert.Contains(t, pair.User, `"quality": "preserved|enhanced|degraded"`)
	assert.Contains(t, pair.User, "- A: 95-100% comprehensiveness using clinical reasoning\n- B: 90-94%")
	assert.Contains(t, pair.User, "- F: <70% comprehensiveness, inadequate for clinical use\n\n**REMEMBER**")
	assert.NotContains(t, pair.User, "[[")
}

func TestEvaluationEmbedsExtractedContent(t *testing.T) {
	pair, err := Evaluation(EvaluationInput{
		GeneratedTemplate: "anything",
		Reference:         sampleReference(t),
		Specialty:         "ID",
		Condition:         "Fever",
	})
	require.NoError(t, err)

	want := `ORIGINAL TEMPLATE CONTENT TO MATCH:
{
  "assessment_fields": [
    "fever history"
  ],
  "diagnostic_fields": [],
  "clinical_pearls": [
    "consider sepsis"
  ]
}

GENERATED TEMPLATE TO EVALUATE:`
	assert.Contains(t, pair.User, want)
}

func TestEvaluationIsDeterministic(t *testing.T) {
	in := EvaluationInput{
		GeneratedTemplate: "template",
		Reference:         sampleReference(t),
		Specialty:         "ID",
		Condition:         "Fever",
	}
	first, err := Evaluation(in)
	require.NoError(t, err)
	second, err := Evaluation(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluationCustomSource(t *testing.T) {
	pair, err := Evaluation(EvaluationInput{Source: "UCSF", Specialty: "Cardiology", Condition: "AF"})
	require.NoError(t, err)
	assert.Contains(t, pair.User, "against the original UCSF template for Cardiology - AF")
}

func TestFormatContentDoesNotEscapeHTML(t *testing.T) {
	out, err := FormatContent(reference.Content{
		AssessmentFields: []string{"HbA1c <7% & stable"},
		DiagnosticFields: []string{},
		ClinicalPearls:   []string{},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `"HbA1c <7% & stable"`)
}

func TestRanking(t *testing.T) {
	text, err := Ranking(RankingInput{
		Components: []string{"Dyspnea duration", "Smoking history", "HRCT chest"},
		Specialty:  "Pulmonology",
		Condition:  "ILD",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "You are a clinical expert in Pulmonology evaluating an e-consult template for ILD."))
	assert.Contains(t, text, "COMPONENTS TO RANK:\n1. Dyspnea duration\n2. Smoking history\n3. HRCT chest\n\nRANKING CRITERIA")
	assert.Contains(t, text, "1. Rank ALL 3 components from 1 (most important) to 3 (least important)")
	assert.Contains(t, text, `"rank": 3,`)
	assert.Contains(t, text, `"critical_threshold"`)
	assert.True(t, strings.HasSuffix(text, "Begin your clinical importance ranking:"))
}

func TestRankingEmpty(t *testing.T) {
	text, err := Ranking(RankingInput{Specialty: "Cardiology", Condition: "AF"})
	require.NoError(t, err)
	assert.Contains(t, text, "COMPONENTS TO RANK:\n\nRANKING CRITERIA")
	assert.Contains(t, text, "to 0 (least important)")
}

func TestNumberedList(t *testing.T) {
	assert.Equal(t, "1. a\n2. b\n", NumberedList([]string{"a", "b"}))
	assert.Equal(t, "", NumberedList(nil))
}

func TestGradeForCoverage(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"},
		{95, "A"},
		{94.9, "B"},
		{90, "B"},
		{89.5, "C"},
		{80, "C"},
		{79, "D"},
		{70, "D"},
		{69.99, "F"},
		{0, "F"},
		{-5, "F"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeForCoverage(tt.pct), "coverage %.2f", tt.pct)
	}
}
