package evaluator

import (
	"math"
	"slices"

	"github.com/giantswarm/template-eval/internal/prompt"
)

func calculateStatistics(runs []EvaluationRun) EvaluationSummary {
	var values []float64
	for _, r := range runs {
		if r.ParseErr == "" && r.CoveragePercentage != nil {
			values = append(values, *r.CoveragePercentage)
		}
	}

	if len(values) == 0 {
		return EvaluationSummary{AllRunsParsed: false}
	}

	mean := meanFloat(values)
	minV := slices.Min(values)
	maxV := slices.Max(values)
	variance := varianceFloat(values, mean)

	return EvaluationSummary{
		MeanCoverage:  &mean,
		MinCoverage:   &minV,
		MaxCoverage:   &maxV,
		Variance:      &variance,
		Grade:         prompt.GradeForCoverage(mean),
		ParsedRuns:    len(values),
		AllRunsParsed: len(values) == len(runs),
	}
}

func meanFloat(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return round2(sum / float64(len(vals)))
}

// varianceFloat calculates the population variance given a precomputed mean.
func varianceFloat(vals []float64, mean float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sumSquaredDiff := 0.0
	for _, v := range vals {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return round2(sumSquaredDiff / float64(len(vals)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
