package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/template-eval/internal/prompt"
	"github.com/giantswarm/template-eval/internal/reference"
	"github.com/giantswarm/template-eval/internal/response"
	"github.com/giantswarm/template-eval/internal/telemetry"
)

// EvaluationInput describes one generated template to evaluate.
type EvaluationInput struct {
	// Name identifies the generated template in results, e.g. a file name.
	Name              string
	GeneratedTemplate string
	Reference         reference.Template
	Specialty         string
	Condition         string
}

// EvaluationRun is the outcome of a single evaluation request.
type EvaluationRun struct {
	Run                int             `json:"run"`
	CoveragePercentage *float64        `json:"coverage_percentage"`
	Grade              string          `json:"grade,omitempty"`
	Result             response.Result `json:"result,omitempty"`
	ParseErr           string          `json:"parse_error,omitempty"`
}

// EvaluationMetadata holds information about an evaluation.
type EvaluationMetadata struct {
	Timestamp         string   `json:"timestamp"`
	Candidate         string   `json:"candidate,omitempty"`
	Specialty         string   `json:"specialty"`
	Condition         string   `json:"condition"`
	Model             string   `json:"model"`
	Repetitions       int      `json:"repetitions"`
	PromptVersion     string   `json:"prompt_version"`
	PromptDescription string   `json:"prompt_description"`
	Approach          []string `json:"approach"`
}

// EvaluationSummary holds coverage statistics over the parsed runs.
type EvaluationSummary struct {
	MeanCoverage  *float64 `json:"mean_coverage"`
	MinCoverage   *float64 `json:"min_coverage"`
	MaxCoverage   *float64 `json:"max_coverage"`
	Variance      *float64 `json:"variance"`
	Grade         string   `json:"grade,omitempty"`
	ParsedRuns    int      `json:"parsed_runs"`
	AllRunsParsed bool     `json:"all_runs_parsed"`
}

// EvaluationOutput is the full structured evaluation output.
type EvaluationOutput struct {
	Metadata EvaluationMetadata `json:"metadata"`
	Runs     []EvaluationRun    `json:"runs"`
	Summary  EvaluationSummary  `json:"summary"`
}

// Evaluate composes the evaluation prompt, queries the model once per
// repetition and aggregates the coverage reported by each reply. Failed
// requests and unparseable replies are recorded on their run rather than
// returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, in EvaluationInput) (*EvaluationOutput, error) {
	pair, err := prompt.Evaluation(prompt.EvaluationInput{
		GeneratedTemplate: in.GeneratedTemplate,
		Reference:         in.Reference,
		Specialty:         in.Specialty,
		Condition:         in.Condition,
		Source:            e.config.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build evaluation prompt: %w", err)
	}

	output := &EvaluationOutput{
		Metadata: EvaluationMetadata{
			Timestamp:         time.Now().Format(time.RFC3339),
			Candidate:         in.Name,
			Specialty:         in.Specialty,
			Condition:         in.Condition,
			Model:             e.config.Model,
			Repetitions:       e.config.Repetitions,
			PromptVersion:     prompt.EvaluationVersion,
			PromptDescription: prompt.EvaluationDescription,
			Approach:          prompt.EvaluationApproach,
		},
		Runs: make([]EvaluationRun, 0, e.config.Repetitions),
	}

	for i := 0; i < e.config.Repetitions; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slog.Info("evaluation run",
			"candidate", in.Name,
			"run", i+1,
			"total", e.config.Repetitions,
		)

		text, err := e.complete(ctx, pair.System, pair.User)
		if err != nil {
			slog.Error("evaluation run failed", "run", i+1, "error", err)
			e.metrics.RecordReply(ctx, "evaluation", telemetry.OutcomeError)
			output.Runs = append(output.Runs, EvaluationRun{Run: i + 1, ParseErr: err.Error()})
			continue
		}

		run := e.evaluationRun(i+1, e.parser.ParseEvaluation(text))
		if run.ParseErr != "" {
			e.metrics.RecordReply(ctx, "evaluation", telemetry.OutcomeFallback)
		} else {
			e.metrics.RecordReply(ctx, "evaluation", telemetry.OutcomeParsed)
			if run.CoveragePercentage != nil {
				e.metrics.RecordCoverage(ctx, e.config.Model, *run.CoveragePercentage)
				slog.Info("evaluation parsed",
					"run", i+1,
					"coverage", *run.CoveragePercentage,
					"grade", run.Grade,
				)
			}
		}
		output.Runs = append(output.Runs, run)
	}

	output.Summary = calculateStatistics(output.Runs)
	return output, nil
}

func (e *Evaluator) evaluationRun(n int, r response.Result) EvaluationRun {
	run := EvaluationRun{Run: n, Result: r}

	if msg, ok := r.ErrorMessage(); ok {
		run.ParseErr = msg
		return run
	}

	pct, ok := r.CoveragePercentage()
	if !ok {
		run.ParseErr = "reply has no coverage percentage"
		return run
	}
	run.CoveragePercentage = &pct

	run.Grade = r.OverallGrade()
	if run.Grade == "" {
		run.Grade = prompt.GradeForCoverage(pct)
	}
	return run
}
