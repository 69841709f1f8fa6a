package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/template-eval/internal/evaluator"
	"github.com/giantswarm/template-eval/internal/reference"
)

// ResultSetFile is the name of the manifest written into every run directory.
const ResultSetFile = "resultset.json"

// RankingFile holds the component ranking of a run, when one was requested.
const RankingFile = "ranking.json"

// ProgressFunc is called before each candidate is evaluated.
type ProgressFunc func(candidate string, index, total int)

// Runner evaluates a batch of generated templates against one reference and
// writes every result under a per-run directory.
type Runner struct {
	evaluator *evaluator.Evaluator
	outputDir string
	progress  ProgressFunc
	rank      bool
}

// NewRunner creates a new batch runner.
func NewRunner(ev *evaluator.Evaluator, outputDir string) *Runner {
	return &Runner{
		evaluator: ev,
		outputDir: outputDir,
	}
}

// SetProgressFunc sets the progress callback.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.progress = fn
}

// SetRankComponents enables ranking the reference's components once per run.
func (r *Runner) SetRankComponents(enabled bool) {
	r.rank = enabled
}

// Run evaluates candidates sequentially against ref. A candidate whose
// evaluation fails is logged and skipped; cancellation stops the batch and
// still writes the manifest for the candidates completed so far.
func (r *Runner) Run(ctx context.Context, ref *reference.Reference, candidates []Candidate) (*Run, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates specified for evaluation run")
	}

	timestamp := time.Now()
	runID := fmt.Sprintf("%s_%s", sanitizeFilename(strings.ReplaceAll(ref.Name, " ", "_")), timestamp.Format("20060102-150405"))

	outputPath := filepath.Join(r.outputDir, runID)
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	cfg := r.evaluator.Config()
	run := &Run{
		ID:          runID,
		Reference:   ref.Name,
		Specialty:   ref.Specialty,
		Condition:   ref.Condition,
		Model:       cfg.Model,
		Repetitions: cfg.Repetitions,
		Timestamp:   timestamp,
		Candidates:  make([]CandidateRun, 0, len(candidates)),
	}

	if r.rank {
		if err := r.rankComponents(ctx, ref, outputPath, run); err != nil {
			slog.Error("component ranking failed", "reference", ref.Name, "error", err)
		}
	}

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			slog.Warn("evaluation run cancelled", "completed", i, "total", len(candidates))
			break
		}

		if r.progress != nil {
			r.progress(c.Name, i+1, len(candidates))
		}

		start := time.Now()
		output, err := r.evaluator.Evaluate(ctx, evaluator.EvaluationInput{
			Name:              c.Name,
			GeneratedTemplate: c.Template,
			Reference:         ref.Template,
			Specialty:         ref.Specialty,
			Condition:         ref.Condition,
		})
		if err != nil {
			slog.Error("candidate evaluation failed", "candidate", c.Name, "error", err)
			continue
		}

		resultsFile := filepath.Join(outputPath, sanitizeFilename(c.Name)+".json")
		if err := evaluator.WriteJSON(resultsFile, output); err != nil {
			return nil, fmt.Errorf("failed to write results for candidate %s: %w", c.Name, err)
		}

		cr := CandidateRun{
			Name:        c.Name,
			Duration:    time.Since(start),
			ResultsFile: resultsFile,
			Output:      output,
		}
		run.Candidates = append(run.Candidates, cr)

		slog.Info("candidate evaluation complete",
			"candidate", c.Name,
			"grade", output.Summary.Grade,
			"all_runs_parsed", output.Summary.AllRunsParsed,
			"duration", cr.Duration,
		)
	}

	run.Duration = time.Since(timestamp)

	if err := writeRunMetadata(outputPath, run); err != nil {
		return nil, fmt.Errorf("failed to write run metadata: %w", err)
	}

	return run, nil
}

func (r *Runner) rankComponents(ctx context.Context, ref *reference.Reference, outputPath string, run *Run) error {
	if len(ref.Components) == 0 {
		return fmt.Errorf("reference %s has no components", ref.Name)
	}

	output, err := r.evaluator.Rank(ctx, evaluator.RankingInput{
		Components: ref.Components,
		Specialty:  ref.Specialty,
		Condition:  ref.Condition,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(outputPath, RankingFile)
	if err := evaluator.WriteJSON(path, output); err != nil {
		return err
	}
	run.RankingFile = path
	run.Ranking = output
	return nil
}

// sanitizeFilename replaces characters unsafe for filenames with underscores.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

func writeRunMetadata(outputPath string, run *Run) error {
	candidates := make([]map[string]any, 0, len(run.Candidates))
	for _, c := range run.Candidates {
		entry := map[string]any{
			"name":            c.Name,
			"duration":        c.Duration.Seconds(),
			"results_file":    c.ResultsFile,
			"all_runs_parsed": c.Output.Summary.AllRunsParsed,
		}
		if c.Output.Summary.MeanCoverage != nil {
			entry["mean_coverage"] = *c.Output.Summary.MeanCoverage
			entry["grade"] = c.Output.Summary.Grade
		}
		candidates = append(candidates, entry)
	}

	metadata := map[string]any{
		"id":            run.ID,
		"reference":     run.Reference,
		"specialty":     run.Specialty,
		"condition":     run.Condition,
		"model":         run.Model,
		"repetitions":   run.Repetitions,
		"timestamp":     run.Timestamp,
		"full_duration": run.Duration.Seconds(),
		"candidates":    candidates,
	}
	if run.RankingFile != "" {
		metadata["ranking_file"] = run.RankingFile
	}

	return evaluator.WriteJSON(filepath.Join(outputPath, ResultSetFile), metadata)
}
