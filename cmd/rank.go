package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/template-eval/internal/evaluator"
)

func newRankCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank template components by clinical importance",
		Long: `Ask the judge model to rank template components by clinical importance and
report the critical cut-line separating essential from supplementary components.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			in, err := rankingInput(cmd, cfg.ReferencesDir)
			if err != nil {
				return err
			}

			ev, stop, err := newEvaluator(ctx, cfg)
			if err != nil {
				return err
			}
			defer stop()

			fmt.Printf("Ranking %d components with %s...\n\n", len(in.Components), cfg.Model)

			result, err := ev.Rank(ctx, evaluator.RankingInput{
				Components: in.Components,
				Specialty:  in.Specialty,
				Condition:  in.Condition,
			})
			if err != nil {
				return err
			}

			if output != "" {
				if err := evaluator.WriteJSON(output, result); err != nil {
					return err
				}
				fmt.Printf("Ranking written to: %s\n\n", output)
			}

			if result.Ranking == nil {
				return fmt.Errorf("ranking reply could not be parsed: %s", result.ParseErr)
			}

			for _, r := range result.Ranking.Top(0) {
				fmt.Printf("%3d. %s\n", r.Rank, r.Component)
				if r.Justification != "" {
					fmt.Printf("     %s\n", r.Justification)
				}
			}
			if result.CriticalThreshold != nil {
				fmt.Printf("\nCritical threshold: %d\n", *result.CriticalThreshold)
			}
			if reasoning := result.Ranking.Summary.Reasoning; reasoning != "" {
				fmt.Printf("Reasoning: %s\n", reasoning)
			}
			return nil
		},
	}

	addModelFlags(cmd)
	addComponentFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the full ranking result as JSON to this file")

	return cmd
}
