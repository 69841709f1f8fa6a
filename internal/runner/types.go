// Package runner evaluates batches of generated templates and persists the
// results of each batch as a run directory.
package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/giantswarm/template-eval/internal/evaluator"
)

// Candidate is a generated template to evaluate.
type Candidate struct {
	Name     string
	Template string
}

// Run represents metadata and results for a complete batch.
type Run struct {
	ID          string                   `json:"id"`
	Reference   string                   `json:"reference"`
	Specialty   string                   `json:"specialty"`
	Condition   string                   `json:"condition"`
	Model       string                   `json:"model"`
	Repetitions int                      `json:"repetitions"`
	Timestamp   time.Time                `json:"timestamp"`
	Duration    time.Duration            `json:"duration"`
	Candidates  []CandidateRun           `json:"candidates"`
	RankingFile string                   `json:"ranking_file,omitempty"`
	Ranking     *evaluator.RankingOutput `json:"-"`
}

// CandidateRun holds the evaluation of a single candidate within a run.
type CandidateRun struct {
	Name        string                      `json:"name"`
	Duration    time.Duration               `json:"duration"`
	ResultsFile string                      `json:"results_file"`
	Output      *evaluator.EvaluationOutput `json:"-"`
}

// LoadCandidates reads generated templates from files and directories.
// Directories contribute their regular .txt and .md files in name order.
// A candidate is named after its file without the extension.
func LoadCandidates(paths ...string) ([]Candidate, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate directory %s: %w", p, err)
		}
		var names []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.Type().IsRegular() && (ext == ".txt" || ext == ".md") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			files = append(files, filepath.Join(p, n))
		}
	}

	candidates := make([]Candidate, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate %s: %w", f, err)
		}
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		candidates = append(candidates, Candidate{Name: name, Template: string(data)})
	}
	return candidates, nil
}
