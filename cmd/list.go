package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/template-eval/internal/reference"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available reference templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			names, err := reference.List(cfg.ReferencesDir)
			if err != nil {
				return fmt.Errorf("failed to list reference templates: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No reference templates found.")
				return nil
			}

			_, _ = fmt.Fprintf(out, "Available reference templates:\n\n")
			for _, name := range names {
				ref, err := reference.Load(name, cfg.ReferencesDir)
				if err != nil {
					_, _ = fmt.Fprintf(out, "  - %s (error loading: %v)\n", name, err)
					continue
				}
				_, _ = fmt.Fprintf(out, "  - %s\n", name)
				_, _ = fmt.Fprintf(out, "    Name: %s\n", ref.Name)
				if ref.Description != "" {
					_, _ = fmt.Fprintf(out, "    Description: %s\n", ref.Description)
				}
				_, _ = fmt.Fprintf(out, "    Specialty: %s\n", ref.Specialty)
				_, _ = fmt.Fprintf(out, "    Condition: %s\n", ref.Condition)
				_, _ = fmt.Fprintf(out, "    Sections: %d\n", len(ref.Template))
				_, _ = fmt.Fprintf(out, "    Components: %d\n\n", len(ref.Components))
			}

			return nil
		},
	}

	cmd.Flags().String("references-dir", "", "External reference templates directory")

	return cmd
}
