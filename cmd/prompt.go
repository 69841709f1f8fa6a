package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/template-eval/internal/prompt"
	"github.com/giantswarm/template-eval/internal/reference"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompts sent to the judge model",
		Long: `Compose evaluation and ranking prompts without calling a model, for
inspection or for use with an external LLM.`,
	}
	cmd.AddCommand(newPromptEvaluateCmd())
	cmd.AddCommand(newPromptRankCmd())
	return cmd
}

func newPromptEvaluateCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "evaluate [generated-template-file]",
		Short: "Print the evaluation prompt for a generated template",
		Long: `Print the system and user messages that ask the judge model to evaluate a
generated template against a reference template. The generated template is read
from the given file, or from standard input when omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			ref, err := loadReference(cmd, cfg)
			if err != nil {
				return err
			}

			var path string
			if len(args) > 0 {
				path = args[0]
			}
			generated, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			pair, err := prompt.Evaluation(prompt.EvaluationInput{
				GeneratedTemplate: generated,
				Reference:         ref.Template,
				Specialty:         ref.Specialty,
				Condition:         ref.Condition,
				Source:            cfg.Source,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeResult(out, pair)
			}
			_, _ = fmt.Fprintf(out, "=== SYSTEM ===\n%s\n\n=== USER ===\n%s\n", pair.System, pair.User)
			return nil
		},
	}

	addReferenceFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the prompts as a JSON object with system and user fields")

	return cmd
}

func newPromptRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the component ranking prompt",
		Long: `Print the prompt that asks the judge model to rank template components by
clinical importance. Components come from --component, --components-file, or the
reference template's components file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			in, err := rankingInput(cmd, cfg.ReferencesDir)
			if err != nil {
				return err
			}

			text, err := prompt.Ranking(in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	addComponentFlags(cmd)

	return cmd
}

func addComponentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("reference", "r", "", "Name of a reference template whose components are ranked")
	f.String("references-dir", "", "External reference templates directory")
	f.StringArray("component", nil, "Component to rank (repeatable)")
	f.String("components-file", "", "CSV file with a Component column")
	f.String("specialty", "", "Medical specialty (overrides the reference's)")
	f.String("condition", "", "Clinical condition (overrides the reference's)")
}

// rankingInput gathers components from flags, in order of preference
// --component, --components-file, then the reference's components.
func rankingInput(cmd *cobra.Command, referencesDir string) (prompt.RankingInput, error) {
	flags := cmd.Flags()
	components, _ := flags.GetStringArray("component")
	componentsFile, _ := flags.GetString("components-file")
	name, _ := flags.GetString("reference")

	var in prompt.RankingInput
	if name != "" {
		ref, err := reference.Load(name, referencesDir)
		if err != nil {
			return in, fmt.Errorf("failed to load reference template: %w", err)
		}
		in = prompt.RankingInput{
			Components: ref.Components,
			Specialty:  ref.Specialty,
			Condition:  ref.Condition,
		}
	}

	switch {
	case len(components) > 0:
		in.Components = nil
		for _, c := range components {
			if c != "" {
				in.Components = append(in.Components, c)
			}
		}
	case componentsFile != "":
		loaded, err := reference.LoadComponentsFile(componentsFile)
		if err != nil {
			return in, err
		}
		in.Components = loaded
	}

	if s, _ := flags.GetString("specialty"); s != "" {
		in.Specialty = s
	}
	if c, _ := flags.GetString("condition"); c != "" {
		in.Condition = c
	}

	if len(in.Components) == 0 {
		return in, fmt.Errorf("no components to rank (use --component, --components-file or --reference)")
	}
	return in, nil
}
