package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/template-eval/internal/evaluator"
	"github.com/giantswarm/template-eval/internal/runner"
	"github.com/giantswarm/template-eval/internal/server"
)

const defaultCandidateName = "candidate"

func registerEvaluationTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	evalOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Evaluate a generated template against a reference template using an LLM as judge. Results are saved as a run retrievable with get_results."),
		mcp.WithString("generated_template",
			mcp.Required(),
			mcp.Description("The generated template text to evaluate"),
		),
		mcp.WithString("name",
			mcp.Description("Name of the generated template, used for the results file (default: candidate)"),
		),
		mcp.WithString("model",
			mcp.Description("Judge model (default: from config)"),
		),
		mcp.WithNumber("repetitions",
			mcp.Description("Number of evaluation repetitions (default: from config)"),
		),
		mcp.WithBoolean("rank_components",
			mcp.Description("Also rank the reference's components by clinical importance"),
		),
	}, referenceOptions()...)
	addTool(s, sc, mcp.NewTool("evaluate_template", evalOpts...), handleEvaluateTemplate)

	rankOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Rank template components by clinical importance using an LLM as judge and report the critical cut-line"),
		mcp.WithArray("components",
			mcp.Description("Components to rank (defaults to the reference's components)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("model",
			mcp.Description("Judge model (default: from config)"),
		),
	}, referenceOptions()...)
	addTool(s, sc, mcp.NewTool("rank_components", rankOpts...), handleRankComponents)

	addTool(s, sc, mcp.NewTool("get_results",
		mcp.WithDescription("Retrieve results of past evaluation runs"),
		mcp.WithString("run_id",
			mcp.Description("Specific run ID to retrieve (optional, lists all if omitted)"),
		),
		mcp.WithString("results_file",
			mcp.Description("A single results file within the output directory"),
		),
	), handleGetResults)
}

func handleEvaluateTemplate(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ev, err := sc.NewEvaluator(stringArg(args, "model"), intArg(args, "repetitions"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	generated, _ := args["generated_template"].(string)
	if strings.TrimSpace(generated) == "" {
		return mcp.NewToolResultError("generated_template is required"), nil
	}

	ref, err := resolveReference(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := stringArg(args, "name")
	if name == "" {
		name = defaultCandidateName
	}

	r := runner.NewRunner(ev, sc.OutputDir)
	r.SetRankComponents(boolArg(args, "rank_components"))

	run, err := r.Run(ctx, ref, []runner.Candidate{{Name: name, Template: generated}})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}
	if len(run.Candidates) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation of %q did not complete", name)), nil
	}

	c := run.Candidates[0]
	summary := map[string]any{
		"run_id":       run.ID,
		"reference":    run.Reference,
		"model":        run.Model,
		"repetitions":  run.Repetitions,
		"results_file": c.ResultsFile,
		"summary":      c.Output.Summary,
		"runs":         c.Output.Runs,
		"duration":     run.Duration.String(),
	}
	if run.Ranking != nil {
		summary["ranking_file"] = run.RankingFile
		summary["essential_components"] = run.Ranking.Essential
	}
	return jsonResult(summary)
}

func handleRankComponents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ev, err := sc.NewEvaluator(stringArg(args, "model"), 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in, err := rankingArgs(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output, err := ev.Rank(ctx, evaluator.RankingInput{
		Components: in.Components,
		Specialty:  in.Specialty,
		Condition:  in.Condition,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ranking failed: %v", err)), nil
	}
	return jsonResult(output)
}
