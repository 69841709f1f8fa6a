package mcp

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Stored runs live directly under the output directory. Each run directory
// holds the result set manifest, an optional ranking and one JSON file per
// evaluated candidate.

var errOutsideOutputDir = errors.New("path must be within output directory")

// runDir returns the directory of the stored run runID.
func runDir(outputDir, runID string) (string, error) {
	id := strings.TrimSpace(runID)
	switch {
	case id == "":
		return "", fmt.Errorf("run_id is required")
	case id == "." || id == "..":
		return "", fmt.Errorf("path traversal is not allowed")
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, filepath.Separator):
		return "", fmt.Errorf("path separators are not allowed")
	}
	return withinOutputDir(outputDir, id)
}

// resultFile returns the path of a stored result file. Relative names are
// taken from the output directory; absolute paths, as reported by
// evaluate_template, must point inside it.
func resultFile(outputDir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("results_file is required")
	}
	path, err := withinOutputDir(outputDir, name)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return "", fmt.Errorf("results_file must name a .json result file")
	}
	return path, nil
}

func withinOutputDir(outputDir, name string) (string, error) {
	base, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}

	target := filepath.Clean(name)
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideOutputDir
	}
	return target, nil
}
