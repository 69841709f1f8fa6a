package response

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Evaluation is a typed view of an evaluation Result.
type Evaluation struct {
	Comprehensiveness Comprehensiveness `mapstructure:"comprehensiveness" json:"comprehensiveness"`
	Conciseness       struct {
		TotalExcessElements int `mapstructure:"total_excess_elements" json:"total_excess_elements"`
	} `mapstructure:"conciseness" json:"conciseness"`
	ElementMapping    ElementMapping    `mapstructure:"element_mapping" json:"element_mapping"`
	ClinicalReasoning ClinicalReasoning `mapstructure:"clinical_reasoning_applied" json:"clinical_reasoning_applied"`
	QualityAssessment struct {
		QualityScore float64 `mapstructure:"quality_score" json:"quality_score"`
	} `mapstructure:"quality_assessment" json:"quality_assessment"`
	Summary struct {
		ComprehensivenessScore float64 `mapstructure:"comprehensiveness_score" json:"comprehensiveness_score"`
		OverallGrade           string  `mapstructure:"overall_grade" json:"overall_grade"`
	} `mapstructure:"summary" json:"summary"`

	Error       string `mapstructure:"error" json:"error,omitempty"`
	RawResponse string `mapstructure:"raw_response" json:"raw_response,omitempty"`
}

// Comprehensiveness holds the coverage counts reported by the model.
type Comprehensiveness struct {
	TotalOriginalElements int     `mapstructure:"total_original_elements" json:"total_original_elements"`
	CoveredElements       int     `mapstructure:"covered_elements" json:"covered_elements"`
	MissingElements       int     `mapstructure:"missing_elements" json:"missing_elements"`
	CoveragePercentage    float64 `mapstructure:"coverage_percentage" json:"coverage_percentage"`
	MissingDetails        []struct {
		Original string `mapstructure:"original" json:"original"`
		Reason   string `mapstructure:"reason" json:"reason"`
	} `mapstructure:"missing_details" json:"missing_details"`
}

// ElementMatch maps one reference element to the generated text covering it.
type ElementMatch struct {
	Original  string `mapstructure:"original" json:"original"`
	Generated string `mapstructure:"generated" json:"generated"`
	Quality   string `mapstructure:"quality" json:"quality"`
	Reasoning string `mapstructure:"reasoning" json:"reasoning"`
}

type ElementMapping struct {
	CoveredAssessments []ElementMatch `mapstructure:"covered_assessments" json:"covered_assessments"`
	CoveredDiagnostics []ElementMatch `mapstructure:"covered_diagnostics" json:"covered_diagnostics"`
	CoveredPearls      []ElementMatch `mapstructure:"covered_pearls" json:"covered_pearls"`
}

type ClinicalReasoning struct {
	EquivalenceMatches    int      `mapstructure:"equivalence_matches" json:"equivalence_matches"`
	ImplicitUnderstanding int      `mapstructure:"implicit_understanding" json:"implicit_understanding"`
	ScopeFlexibility      int      `mapstructure:"scope_flexibility" json:"scope_flexibility"`
	SpecialistUtility     int      `mapstructure:"specialist_utility" json:"specialist_utility"`
	Examples              []string `mapstructure:"examples" json:"examples"`
}

// Ranking is a typed view of a ranking Result.
type Ranking struct {
	Rankings []RankedComponent `mapstructure:"rankings" json:"rankings"`
	Summary  struct {
		CriticalThreshold string `mapstructure:"critical_threshold" json:"critical_threshold"`
		Reasoning         string `mapstructure:"reasoning" json:"reasoning"`
	} `mapstructure:"summary" json:"summary"`

	Error       string `mapstructure:"error" json:"error,omitempty"`
	RawResponse string `mapstructure:"raw_response" json:"raw_response,omitempty"`
}

// RankedComponent is one entry of a ranking.
type RankedComponent struct {
	Rank          int    `mapstructure:"rank" json:"rank"`
	Component     string `mapstructure:"component" json:"component"`
	Justification string `mapstructure:"justification" json:"justification"`
}

// DecodeEvaluation decodes r into an Evaluation. Numeric fields accept
// numbers, numeric strings and percentages such as "85%".
func DecodeEvaluation(r Result) (*Evaluation, error) {
	var e Evaluation
	if err := decodeInto(r, &e); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}
	return &e, nil
}

// DecodeRanking decodes r into a Ranking.
func DecodeRanking(r Result) (*Ranking, error) {
	var rk Ranking
	if err := decodeInto(r, &rk); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}
	return &rk, nil
}

func decodeInto(r Result, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(percentStringHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(r))
}

// percentStringHook turns "85%" into 85 for numeric targets.
func percentStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64, reflect.Int32:
	default:
		return data, nil
	}

	// json.Number shares the string kind.
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(reflect.ValueOf(data).String()), "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return data, nil
	}
	return f, nil
}

// Top returns the n highest ranked components ordered by rank. A non-positive
// n, or one larger than the ranking, returns every component.
func (r *Ranking) Top(n int) []RankedComponent {
	ranked := make([]RankedComponent, len(r.Rankings))
	copy(ranked, r.Rankings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank < ranked[j].Rank
	})
	if n <= 0 || n > len(ranked) {
		return ranked
	}
	return ranked[:n]
}

var firstNumber = regexp.MustCompile(`\d+`)

// CriticalThreshold returns the cut-line rank named in the summary. Models
// describe it in prose ("rank 8", "8 - after the imaging"), so the first
// integer found is used.
func (r *Ranking) CriticalThreshold() (int, bool) {
	m := firstNumber.FindString(r.Summary.CriticalThreshold)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ErrorMessage returns the fallback error carried by r, if any.
func (r Result) ErrorMessage() (string, bool) {
	msg, ok := r[KeyError].(string)
	return msg, ok
}

// CoveragePercentage returns comprehensiveness.coverage_percentage, falling
// back to summary.comprehensiveness_score.
func (r Result) CoveragePercentage() (float64, bool) {
	if v, ok := nested(r, "comprehensiveness", "coverage_percentage"); ok {
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	if v, ok := nested(r, "summary", "comprehensiveness_score"); ok {
		return toFloat(v)
	}
	return 0, false
}

// OverallGrade returns summary.overall_grade, or "" when absent.
func (r Result) OverallGrade() string {
	v, _ := nested(r, "summary", "overall_grade")
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func nested(r Result, section, key string) (any, bool) {
	m, ok := r[section].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%")), 64)
		return f, err == nil
	}
	return 0, false
}
