package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/giantswarm/template-eval/internal/response"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Recover structured JSON from a judge model reply",
		Long: `Parse a raw judge model reply and print the recovered JSON object.

Unparseable replies never fail the command: they produce a fallback object with
an "error" field and the raw reply.`,
	}
	cmd.AddCommand(newParseSubCmd("evaluation", "Parse an evaluation reply", func(p *response.Parser, raw string) response.Result {
		return p.ParseEvaluation(raw)
	}))
	cmd.AddCommand(newParseSubCmd("ranking", "Parse a component ranking reply", func(p *response.Parser, raw string) response.Result {
		return p.ParseRanking(raw)
	}))
	return cmd
}

func newParseSubCmd(use, short string, parse func(*response.Parser, string) response.Result) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   use + " [reply-file]",
		Short: short,
		Long:  short + `. The reply is read from the given file, or from standard input when omitted or "-".`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			parser, err := newParser(cfg)
			if err != nil {
				return err
			}

			var path string
			if len(args) > 0 {
				path = args[0]
			}
			raw, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			result := parse(parser, raw)
			if err := writeResult(cmd.OutOrStdout(), result); err != nil {
				return err
			}

			if msg, failed := result.ErrorMessage(); failed && strict {
				return fmt.Errorf("reply could not be parsed: %s", msg)
			}
			return nil
		},
	}

	cmd.Flags().String("span-mode", "", "How the reply is searched for JSON: greedy or balanced")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when the reply yields a fallback result")

	return cmd
}

func writeResult(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
