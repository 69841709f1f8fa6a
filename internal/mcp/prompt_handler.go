package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/template-eval/internal/prompt"
	"github.com/giantswarm/template-eval/internal/server"
)

func registerPromptTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	evalOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Compose the system and user messages that ask a judge model to evaluate a generated template against a reference template"),
		mcp.WithString("generated_template",
			mcp.Required(),
			mcp.Description("The generated template text to evaluate"),
		),
		mcp.WithString("source",
			mcp.Description("Institution the reference templates come from (default: Stanford)"),
		),
	}, referenceOptions()...)
	addTool(s, sc, mcp.NewTool("build_evaluation_prompt", evalOpts...), handleBuildEvaluationPrompt)

	rankOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Compose the prompt that asks a judge model to rank template components by clinical importance"),
		mcp.WithArray("components",
			mcp.Description("Components to rank (defaults to the reference's components)"),
			mcp.WithStringItems(),
		),
	}, referenceOptions()...)
	addTool(s, sc, mcp.NewTool("build_ranking_prompt", rankOpts...), handleBuildRankingPrompt)
}

func handleBuildEvaluationPrompt(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	generated, _ := args["generated_template"].(string)
	if strings.TrimSpace(generated) == "" {
		return mcp.NewToolResultError("generated_template is required"), nil
	}

	ref, err := resolveReference(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	source := stringArg(args, "source")
	if source == "" {
		source = sc.Evaluation.Source
	}

	pair, err := prompt.Evaluation(prompt.EvaluationInput{
		GeneratedTemplate: generated,
		Reference:         ref.Template,
		Specialty:         ref.Specialty,
		Condition:         ref.Condition,
		Source:            source,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build evaluation prompt: %v", err)), nil
	}
	return jsonResult(pair)
}

func handleBuildRankingPrompt(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	in, err := rankingArgs(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := prompt.Ranking(in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build ranking prompt: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// rankingArgs takes the components from the "components" argument, or from
// the reference template when none are given.
func rankingArgs(args map[string]any, sc *server.ServerContext) (prompt.RankingInput, error) {
	in := prompt.RankingInput{
		Components: stringSliceArg(args, "components"),
		Specialty:  stringArg(args, "specialty"),
		Condition:  stringArg(args, "condition"),
	}
	if len(in.Components) > 0 && stringArg(args, "reference") == "" {
		return in, nil
	}

	ref, err := resolveReference(args, sc)
	if err != nil {
		if len(in.Components) == 0 {
			return in, fmt.Errorf("components are required: %w", err)
		}
		return in, err
	}
	if len(in.Components) == 0 {
		in.Components = ref.Components
	}
	if len(in.Components) == 0 {
		return in, fmt.Errorf("reference %q has no components", ref.Name)
	}
	in.Specialty = ref.Specialty
	in.Condition = ref.Condition
	return in, nil
}
