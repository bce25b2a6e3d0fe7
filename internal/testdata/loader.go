package testdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// ErrNoParameters is returned when neither the edited parameters nor the template exist.
var ErrNoParameters = errors.New("no parameter file found")

// Loader handles loading common parameter overrides from files
type Loader struct {
	dir string
}

// NewLoader creates a new parameter loader
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadParameters loads the human-edited parameters, falling back to the generated template.
func (l *Loader) LoadParameters() ([]types.APIParameter, error) {
	params, err := l.loadFromFile(ParametersFile)
	if err == nil {
		return params, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	params, err = l.loadFromFile(TemplateFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoParameters, l.dir)
		}
		return nil, err
	}
	return params, nil
}

func (l *Loader) loadFromFile(filename string) ([]types.APIParameter, error) {
	path := filepath.Join(l.dir, filename)
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data ParameterTemplate
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return data.Parameters, nil
}
