package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/template-eval/internal/runner"
	"github.com/giantswarm/template-eval/internal/server"
)

func handleGetResults(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	if resultsFile := stringArg(args, "results_file"); resultsFile != "" {
		return getResultsFile(sc.OutputDir, resultsFile)
	}
	if runID := stringArg(args, "run_id"); runID != "" {
		return getSpecificRun(sc.OutputDir, runID)
	}
	return listRuns(sc.OutputDir)
}

func listRuns(outputDir string) (*mcp.CallToolResult, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultText("[]"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to read results directory: %v", err)), nil
	}

	runs := []map[string]any{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		metadata, err := readJSONObject(filepath.Join(outputDir, e.Name(), runner.ResultSetFile))
		if err != nil {
			continue
		}
		runs = append(runs, metadata)
	}

	// Newest first.
	sort.SliceStable(runs, func(i, j int) bool {
		ti, _ := runs[i]["timestamp"].(string)
		tj, _ := runs[j]["timestamp"].(string)
		return ti > tj
	})

	return jsonResult(runs)
}

func getSpecificRun(outputDir, runID string) (*mcp.CallToolResult, error) {
	runPath, err := runDir(outputDir, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run_id: %v", err)), nil
	}

	metadata, err := readJSONObject(filepath.Join(runPath, runner.ResultSetFile))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %q not found: %v", runID, err)), nil
	}

	files, _ := os.ReadDir(runPath)
	results := make(map[string]any)
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".json") || name == runner.ResultSetFile {
			continue
		}
		obj, err := readJSONObject(filepath.Join(runPath, name))
		if err != nil {
			continue
		}
		if name == runner.RankingFile {
			metadata["ranking"] = obj
			continue
		}
		results[strings.TrimSuffix(name, ".json")] = obj
	}
	if len(results) > 0 {
		metadata["results"] = results
	}

	return jsonResult(metadata)
}

func getResultsFile(outputDir, resultsFile string) (*mcp.CallToolResult, error) {
	path, err := resultFile(outputDir, resultsFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid results_file: %v", err)), nil
	}

	obj, err := readJSONObject(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read results file: %v", err)), nil
	}
	return jsonResult(obj)
}

func readJSONObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%s is not a JSON object", filepath.Base(path))
	}
	return obj, nil
}
