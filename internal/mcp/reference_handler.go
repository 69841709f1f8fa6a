package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/template-eval/internal/reference"
	"github.com/giantswarm/template-eval/internal/server"
)

func registerReferenceTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	addTool(s, sc, mcp.NewTool("list_reference_templates",
		mcp.WithDescription("List the reference templates available for evaluation, with specialty, condition and component counts"),
	), handleListReferences)
}

type referenceInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description,omitempty"`
	Specialty      string `json:"specialty"`
	Condition      string `json:"condition"`
	SectionCount   int    `json:"section_count"`
	ComponentCount int    `json:"component_count"`
}

func handleListReferences(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	names, err := reference.List(sc.ReferencesDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reference templates: %v", err)), nil
	}

	refs := make([]referenceInfo, 0, len(names))
	for _, name := range names {
		ref, err := reference.Load(name, sc.ReferencesDir)
		if err != nil {
			slog.Warn("skipping unreadable reference template", "name", name, "error", err)
			continue
		}
		refs = append(refs, referenceInfo{
			Name:           name,
			DisplayName:    ref.Name,
			Description:    ref.Description,
			Specialty:      ref.Specialty,
			Condition:      ref.Condition,
			SectionCount:   len(ref.Template),
			ComponentCount: len(ref.Components),
		})
	}

	return jsonResult(refs)
}
