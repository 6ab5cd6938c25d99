package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProcessConfig describes an external command exposed as a named action.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of an actions file.
type ConfigFile struct {
	Actions []ProcessConfig `yaml:"actions" json:"actions"`
}

// LoadActions reads an actions file (YAML or JSON) and returns the configs
// keyed by name. Entries without a name or command are rejected.
func LoadActions(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actions file: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	actions := make(map[string]ProcessConfig, len(cfg.Actions))
	for i, action := range cfg.Actions {
		if action.Name == "" || action.Command == "" {
			return nil, fmt.Errorf("%s: action #%d needs a name and a command", path, i+1)
		}
		if _, dup := actions[action.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate action %q", path, action.Name)
		}
		actions[action.Name] = action
	}
	return actions, nil
}
