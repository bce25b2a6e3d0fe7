package testdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// File names used for common parameter overrides.
const (
	TemplateFile   = "parameters_template.json"
	ParametersFile = "parameters.json"
)

// ParameterTemplate is the on-disk form of the common parameter list.
type ParameterTemplate struct {
	Parameters []types.APIParameter `json:"parameters"`
}

// Generator handles the generation of parameter templates
type Generator struct {
	outputDir string
}

// NewGenerator creates a new instance of Generator
func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
	}
}

// GenerateTemplate writes the inferred common parameters so they can be edited
// before a test run. It returns the path of the written file.
func (g *Generator) GenerateTemplate(params []types.APIParameter) (string, error) {
	if params == nil {
		params = []types.APIParameter{}
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(ParameterTemplate{Parameters: params}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal template: %w", err)
	}

	outputPath := filepath.Join(g.outputDir, TemplateFile)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write template file: %w", err)
	}
	return outputPath, nil
}
