package config

import (
	"fmt"
	"os"

	"github.com/timmy/jobscout/internal/domain"
	"gopkg.in/yaml.v3"
)

type sourcesFile struct {
	Sources []domain.SourceSpec `yaml:"sources"`
}

// LoadSources reads sources.yaml and returns the enabled entries.
// Parameters:
//   - path: path to the sources file.
// Returns:
//   - []domain.SourceSpec: enabled sources in file order.
//   - int: total number of entries, enabled or not.
//   - error: non-nil if the file is missing or malformed.
func LoadSources(path string) ([]domain.SourceSpec, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("failed to parse sources file: %w", err)
	}

	enabled := make([]domain.SourceSpec, 0, len(file.Sources))
	for _, s := range file.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, len(file.Sources), nil
}
