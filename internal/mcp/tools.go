// Package mcp exposes template evaluation over the Model Context Protocol.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/template-eval/internal/reference"
	"github.com/giantswarm/template-eval/internal/server"
)

type handlerFunc func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}
	registerReferenceTools(s, sc)
	registerPromptTools(s, sc)
	registerParseTools(s, sc)
	registerEvaluationTools(s, sc)
	return nil
}

func addTool(s *mcpserver.MCPServer, sc *server.ServerContext, tool mcp.Tool, handle handlerFunc) {
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handle(ctx, request, sc)
	})
}

// referenceOptions are shared by every tool that needs a reference template.
func referenceOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("reference",
			mcp.Description("Name of a reference template from list_reference_templates"),
		),
		mcp.WithString("reference_template",
			mcp.Description("Inline reference template as JSON or YAML (alternative to 'reference')"),
		),
		mcp.WithString("specialty",
			mcp.Description("Medical specialty (overrides the reference's)"),
		),
		mcp.WithString("condition",
			mcp.Description("Clinical condition (overrides the reference's)"),
		),
	}
}

// resolveReference loads the reference named by the "reference" argument or
// parses the inline "reference_template" one, then applies the specialty and
// condition overrides.
func resolveReference(args map[string]any, sc *server.ServerContext) (*reference.Reference, error) {
	name := stringArg(args, "reference")
	inline := stringArg(args, "reference_template")

	var ref *reference.Reference
	switch {
	case name != "" && inline != "":
		return nil, fmt.Errorf("use either 'reference' or 'reference_template', not both")
	case name != "":
		loaded, err := reference.Load(name, sc.ReferencesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load reference template: %w", err)
		}
		ref = loaded
	case inline != "":
		t, err := reference.Parse([]byte(inline))
		if err != nil {
			return nil, fmt.Errorf("invalid reference_template: %w", err)
		}
		ref = &reference.Reference{Name: "inline", Template: t}
	default:
		return nil, fmt.Errorf("either 'reference' or 'reference_template' is required")
	}

	if s := stringArg(args, "specialty"); s != "" {
		ref.Specialty = s
	}
	if c := stringArg(args, "condition"); c != "" {
		ref.Condition = c
	}
	return ref, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// stringSliceArg accepts a JSON array of strings. Empty entries are dropped;
// the others are kept exactly as given.
func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		if ss, ok := args[key].([]string); ok {
			raw = make([]any, len(ss))
			for i, s := range ss {
				raw[i] = s
			}
		}
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// jsonResult renders v as indented JSON without HTML escaping, so prompt
// text survives unchanged.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(strings.TrimRight(buf.String(), "\n")), nil
}
