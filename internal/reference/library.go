package reference

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed all:testdata
var embeddedReferences embed.FS

// Reference is a named reference template together with the specialty and
// condition it was written for and, optionally, its rankable components.
type Reference struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Specialty      string   `yaml:"specialty"`
	Condition      string   `yaml:"condition"`
	TemplateFile   string   `yaml:"template_file"`
	ComponentsFile string   `yaml:"components_file"`
	Template       Template `yaml:"-"`
	Components     []string `yaml:"-"` // loaded separately from CSV
}

// Load loads a reference by name, searching first in the external directory
// (if provided), then in the embedded references.
func Load(name string, externalDir string) (*Reference, error) {
	if externalDir != "" {
		dir := filepath.Join(externalDir, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return loadFromFS(os.DirFS(dir), name)
		}
	}

	// embed.FS always uses forward slashes.
	subFS, err := fs.Sub(embeddedReferences, path.Join("testdata", name))
	if err != nil {
		return nil, fmt.Errorf("reference %q not found: %w", name, err)
	}
	return loadFromFS(subFS, name)
}

// List returns the names of all available references.
func List(externalDir string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	entries, err := fs.ReadDir(embeddedReferences, "testdata")
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				seen[e.Name()] = true
				names = append(names, e.Name())
			}
		}
	}

	if externalDir != "" {
		entries, err := os.ReadDir(externalDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read references directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() && !seen[e.Name()] {
				names = append(names, e.Name())
			}
		}
	}

	return names, nil
}

func loadFromFS(fsys fs.FS, name string) (*Reference, error) {
	configData, err := fs.ReadFile(fsys, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read config.yaml for reference %q: %w", name, err)
	}

	var ref Reference
	if err := yaml.Unmarshal(configData, &ref); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml for reference %q: %w", name, err)
	}

	if ref.Name == "" {
		ref.Name = name
	}
	if ref.TemplateFile == "" {
		ref.TemplateFile = "reference.yaml"
	}

	templateData, err := fs.ReadFile(fsys, ref.TemplateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for reference %q: %w", ref.TemplateFile, name, err)
	}
	ref.Template, err = Parse(templateData)
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", name, err)
	}

	// Components are optional unless a file is named explicitly.
	componentsFile := ref.ComponentsFile
	if componentsFile == "" {
		componentsFile = "components.csv"
	}
	ref.Components, err = loadComponentsFromFS(fsys, componentsFile)
	switch {
	case errors.Is(err, fs.ErrNotExist) && ref.ComponentsFile == "":
		ref.Components = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load components for reference %q: %w", name, err)
	default:
		ref.ComponentsFile = componentsFile
	}

	return &ref, nil
}

// LoadComponentsFile reads rankable template components from a CSV file with
// a "Component" column.
func LoadComponentsFile(filename string) ([]string, error) {
	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}
	return loadComponentsFromFS(os.DirFS(dir), base)
}

func loadComponentsFromFS(fsys fs.FS, filename string) ([]string, error) {
	f, err := fsys.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "Component" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing required CSV column: Component")
	}

	var components []string
	for lineNum := 2; ; lineNum++ { // 1-indexed, after header.
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", lineNum, err)
		}
		if len(record) <= col {
			return nil, fmt.Errorf("CSV row %d has %d columns, expected at least %d", lineNum, len(record), col+1)
		}
		if component := strings.TrimSpace(record[col]); component != "" {
			components = append(components, component)
		}
	}

	return components, nil
}
