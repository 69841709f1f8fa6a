package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/template-eval/internal/runner"
)

func newEvaluateCmd() *cobra.Command {
	var (
		rankComponents bool
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "evaluate <generated-template>...",
		Short: "Evaluate generated templates against a reference template",
		Long: `Evaluate one or more generated templates against a reference template using
an LLM as judge. Each argument is a template file, or a directory whose .txt and
.md files are evaluated in name order.

Every template is evaluated --repetitions times. Results are written to the
output directory as one JSON file per template plus a resultset.json manifest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			ref, err := loadReference(cmd, cfg)
			if err != nil {
				return err
			}
			candidates, err := runner.LoadCandidates(args...)
			if err != nil {
				return err
			}

			ev, stop, err := newEvaluator(ctx, cfg)
			if err != nil {
				return err
			}
			defer stop()

			r := runner.NewRunner(ev, cfg.OutputDir)
			r.SetRankComponents(rankComponents)
			r.SetProgressFunc(func(name string, idx, total int) {
				fmt.Printf("  [%d/%d] Evaluating %s...\n", idx, total, name)
			})

			fmt.Printf("Reference: %s\n", ref.Name)
			fmt.Printf("Specialty: %s\n", ref.Specialty)
			fmt.Printf("Condition: %s\n", ref.Condition)
			fmt.Printf("Judge model: %s (%s)\n", cfg.Model, cfg.Provider)
			fmt.Printf("Repetitions: %d\n", cfg.Repetitions)
			fmt.Printf("Templates to evaluate: %d\n\n", len(candidates))

			run, err := r.Run(ctx, ref, candidates)
			if err != nil {
				return err
			}

			fmt.Printf("\nEvaluation completed.\n")
			fmt.Printf("Run ID: %s\n", run.ID)
			fmt.Printf("Duration: %s\n", run.Duration.Round(time.Millisecond))
			fmt.Printf("Results:\n")
			for _, c := range run.Candidates {
				s := c.Output.Summary
				if s.MeanCoverage == nil {
					fmt.Printf("  - %s: no parseable evaluation (%s)\n", c.Name, c.ResultsFile)
					continue
				}
				fmt.Printf("  - %s: %.2f%% coverage, grade %s, range %.2f-%.2f, %d/%d runs parsed (%s)\n",
					c.Name, *s.MeanCoverage, s.Grade, *s.MinCoverage, *s.MaxCoverage,
					s.ParsedRuns, len(c.Output.Runs), c.ResultsFile)
			}
			if run.Ranking != nil {
				fmt.Printf("Component ranking: %s\n", run.RankingFile)
				printEssential(run.Ranking.Essential)
			}

			slog.Info("evaluation run complete", "run_id", run.ID)
			return nil
		},
	}

	addModelFlags(cmd)
	addReferenceFlags(cmd)
	cmd.Flags().String("output-dir", "", "Directory for results (default from config: results)")
	cmd.Flags().BoolVar(&rankComponents, "rank-components", false, "Also rank the reference's components by clinical importance")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout for the run (e.g. 30m, 1h). 0 means no timeout")

	return cmd
}

func printEssential(essential []string) {
	if len(essential) == 0 {
		return
	}
	fmt.Printf("Essential components:\n")
	for i, c := range essential {
		fmt.Printf("  %d. %s\n", i+1, c)
	}
}
