package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const evaluationReply = `Here is my evaluation:
{
  "comprehensiveness": {
    "total_original_elements": 10,
    "covered_elements": 9,
    "missing_elements": 1,
    "coverage_percentage": "90%",
    "missing_details": [{"original": "Oxygen saturation", "reason": "not requested"}]
  },
  "conciseness": {"total_excess_elements": 3},
  "element_mapping": {
    "covered_assessments": [
      {"original": "Dyspnea", "generated": "Shortness of breath", "quality": "preserved", "reasoning": "synonym"}
    ],
    "covered_diagnostics": [],
    "covered_pearls": []
  },
  "clinical_reasoning_applied": {
    "equivalence_matches": 4,
    "implicit_understanding": 1,
    "scope_flexibility": 2,
    "specialist_utility": 2,
    "examples": ["SOB accepted for dyspnea"]
  },
  "quality_assessment": {"quality_score": 8},
  "summary": {"comprehensiveness_score": 90, "overall_grade": "B"}
}`

func TestDecodeEvaluation(t *testing.T) {
	r := ParseEvaluation(evaluationReply)
	_, hasErr := r.ErrorMessage()
	require.False(t, hasErr)

	e, err := DecodeEvaluation(r)
	require.NoError(t, err)

	assert.Equal(t, 10, e.Comprehensiveness.TotalOriginalElements)
	assert.Equal(t, 9, e.Comprehensiveness.CoveredElements)
	assert.InDelta(t, 90.0, e.Comprehensiveness.CoveragePercentage, 0.001)
	require.Len(t, e.Comprehensiveness.MissingDetails, 1)
	assert.Equal(t, "Oxygen saturation", e.Comprehensiveness.MissingDetails[0].Original)
	assert.Equal(t, 3, e.Conciseness.TotalExcessElements)
	require.Len(t, e.ElementMapping.CoveredAssessments, 1)
	assert.Equal(t, "preserved", e.ElementMapping.CoveredAssessments[0].Quality)
	assert.Equal(t, 4, e.ClinicalReasoning.EquivalenceMatches)
	assert.Equal(t, []string{"SOB accepted for dyspnea"}, e.ClinicalReasoning.Examples)
	assert.InDelta(t, 8.0, e.QualityAssessment.QualityScore, 0.001)
	assert.Equal(t, "B", e.Summary.OverallGrade)
	assert.Empty(t, e.Error)
}

func TestDecodeEvaluationFallback(t *testing.T) {
	e, err := DecodeEvaluation(ParseEvaluation(`{"broken": [}`))
	require.NoError(t, err)

	assert.Equal(t, ErrFailedToParseJSON, e.Error)
	assert.Equal(t, "F", e.Summary.OverallGrade)
	assert.Zero(t, e.Comprehensiveness.CoveragePercentage)
	assert.Equal(t, `{"broken": [}`, e.RawResponse)
}

func TestResultAccessors(t *testing.T) {
	tests := []struct {
		name      string
		result    Result
		wantPct   float64
		wantPctOK bool
		wantGrade string
		wantErr   string
	}{
		{
			name:      "parsed",
			result:    ParseEvaluation(evaluationReply),
			wantPct:   90,
			wantPctOK: true,
			wantGrade: "B",
		},
		{
			name: "score fallback",
			result: Result{
				"summary": map[string]any{"comprehensiveness_score": float64(72), "overall_grade": " D "},
			},
			wantPct:   72,
			wantPctOK: true,
			wantGrade: "D",
		},
		{
			name: "decoded number",
			result: Result{
				"comprehensiveness": map[string]any{"coverage_percentage": json.Number("87.5")},
			},
			wantPct:   87.5,
			wantPctOK: true,
		},
		{
			name:    "no json",
			result:  ParseEvaluation("nothing"),
			wantErr: ErrNoJSONFound,
		},
		{
			name:      "unparseable",
			result:    ParseEvaluation("{oops}"),
			wantPct:   0,
			wantPctOK: true,
			wantGrade: "F",
			wantErr:   ErrFailedToParseJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, ok := tt.result.CoveragePercentage()
			assert.Equal(t, tt.wantPctOK, ok)
			assert.InDelta(t, tt.wantPct, pct, 0.001)
			assert.Equal(t, tt.wantGrade, tt.result.OverallGrade())
			msg, _ := tt.result.ErrorMessage()
			assert.Equal(t, tt.wantErr, msg)
		})
	}
}

func TestDecodeRanking(t *testing.T) {
	raw := `{
  "rankings": [
    {"rank": 2, "component": "Smoking history", "justification": "risk"},
    {"rank": 1, "component": "HRCT chest", "justification": "diagnostic"},
    {"rank": 3, "component": "Family history", "justification": "context"}
  ],
  "summary": {"critical_threshold": 2, "reasoning": "imaging first"}
}`
	rk, err := DecodeRanking(ParseRanking(raw))
	require.NoError(t, err)

	require.Len(t, rk.Rankings, 3)
	assert.Equal(t, "2", rk.Summary.CriticalThreshold)

	threshold, ok := rk.CriticalThreshold()
	require.True(t, ok)
	assert.Equal(t, 2, threshold)

	top := rk.Top(threshold)
	require.Len(t, top, 2)
	assert.Equal(t, "HRCT chest", top[0].Component)
	assert.Equal(t, "Smoking history", top[1].Component)

	assert.Len(t, rk.Top(0), 3)
	assert.Len(t, rk.Top(10), 3)
	assert.Equal(t, 2, rk.Rankings[0].Rank, "Top must not reorder the decoded rankings")
}

func TestCriticalThreshold(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "8", want: 8, wantOK: true},
		{in: "rank 12", want: 12, wantOK: true},
		{in: "after 5 (e.g., 8)", want: 5, wantOK: true},
		{in: "none", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		var rk Ranking
		rk.Summary.CriticalThreshold = tt.in
		got, ok := rk.CriticalThreshold()
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDecodeRankingFallback(t *testing.T) {
	rk, err := DecodeRanking(ParseRanking("no ranking"))
	require.NoError(t, err)
	assert.Equal(t, ErrFailedToParseRanking, rk.Error)
	assert.Empty(t, rk.Rankings)
}
