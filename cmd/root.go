package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "template-eval",
	Short: "Evaluate generated clinical e-consult templates with an LLM as judge",
	Long: `template-eval compares generated clinical e-consult templates against
specialist-authored reference templates. It composes judge prompts, calls an
OpenAI-compatible or Anthropic model, recovers structured JSON from the replies,
aggregates coverage over repeated runs, and ranks template components by
clinical importance. All functionality is also exposed via an MCP server with
optional OAuth 2.1 authentication.

When run without subcommands, it starts the MCP server (equivalent to 'template-eval serve').`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			// stderr keeps stdout clean for JSON output and the stdio transport.
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// serveCmd is stored so the root command can delegate to it by default.
var serveCmd *cobra.Command

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "template-eval version %s\n" .Version}}`)

	// The root command cannot parse serve-specific flags, so it only runs the
	// stdio default.
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stderr, "No subcommand specified. Defaulting to 'serve' (stdio transport).")
		fmt.Fprintln(os.Stderr, "For HTTP transport or OAuth, use: template-eval serve --transport streamable-http")
		fmt.Fprintln(os.Stderr)
		if err := serveCmd.RunE(serveCmd, args); err != nil {
			slog.Error("serve failed", "error", err)
			os.Exit(1)
		}
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	serveCmd = newServeCmd()
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newRankCmd())

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: .template-eval.yaml or ~/.config/template-eval/config.yaml)")
}
