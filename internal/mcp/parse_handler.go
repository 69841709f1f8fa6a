package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/template-eval/internal/response"
	"github.com/giantswarm/template-eval/internal/server"
)

func registerParseTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	responseOptions := func(description string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithDescription(description),
			mcp.WithString("response",
				mcp.Required(),
				mcp.Description("The raw reply of the judge model"),
			),
			mcp.WithString("span_mode",
				mcp.Description("How to locate the JSON object: greedy (first '{' to last '}') or balanced"),
				mcp.Enum(response.SpanGreedy, response.SpanBalanced),
			),
		}
	}

	addTool(s, sc, mcp.NewTool("parse_evaluation_response",
		responseOptions("Recover the evaluation JSON from a judge model reply. Unparseable replies yield a result with grade F and an error field.")...,
	), handleParseEvaluation)

	addTool(s, sc, mcp.NewTool("parse_ranking_response",
		responseOptions("Recover the component ranking JSON from a judge model reply")...,
	), handleParseRanking)
}

func handleParseEvaluation(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, ok := args["response"].(string)
	if !ok {
		return mcp.NewToolResultError("response is required"), nil
	}

	p, err := parserFor(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p.ParseEvaluation(raw))
}

func handleParseRanking(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, ok := args["response"].(string)
	if !ok {
		return mcp.NewToolResultError("response is required"), nil
	}

	p, err := parserFor(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p.ParseRanking(raw))
}

// parserFor honours a per-call span_mode, otherwise the server's parser.
func parserFor(args map[string]any, sc *server.ServerContext) (*response.Parser, error) {
	mode := stringArg(args, "span_mode")
	if mode == "" {
		return sc.ResponseParser(), nil
	}
	find, err := response.SpanFinderFor(mode)
	if err != nil {
		return nil, err
	}
	return response.NewParser(response.WithSpanFinder(find)), nil
}
