package logbook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadEntry reads an entry from a .yaml, .yml or .json file.
func LoadEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry file: %w", err)
	}

	var entry Entry
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entry)
	case ".json":
		err = json.Unmarshal(data, &entry)
	default:
		return nil, fmt.Errorf("unsupported entry file format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry file: %w", err)
	}

	return &entry, nil
}
