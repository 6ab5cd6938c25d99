package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aleung/fsm/internal/validator"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/registry"
)

// Format of a definition file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from the file extension. Anything that is not
// .json is treated as YAML.
func FormatOf(path string) Format {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return FormatJSON
	}
	return FormatYAML
}

// LoadDocument reads and decodes a definition file without binding actions.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	doc, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Load reads a definition file and compiles it against reg.
func Load(path string, reg *registry.Registry) (*Document, domain.MachineDefinition, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, domain.MachineDefinition{}, err
	}
	def, err := doc.Compile(reg)
	if err != nil {
		return nil, domain.MachineDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, def, nil
}

// Parse decodes raw file content in the given format.
func Parse(data []byte, format Format) (*Document, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}
	if raw == nil {
		return nil, errors.New("empty definition")
	}
	return Decode(raw)
}

// Compile binds the named actions against reg and validates the result.
// A nil reg only accepts documents without actions.
func (d *Document) Compile(reg *registry.Registry) (domain.MachineDefinition, error) {
	if reg == nil {
		reg = registry.NewRegistry()
	}

	def := domain.MachineDefinition{
		InitialState: d.Initial,
		States:       make(map[string]domain.StateDefinition, len(d.States)),
	}

	for name, sd := range d.States {
		st := domain.StateDefinition{}
		var err error
		if sd.Entry != "" {
			if st.Actions.OnEntry, err = reg.Entry(sd.Entry, name); err != nil {
				return domain.MachineDefinition{}, fmt.Errorf("state %q entry: %w", name, err)
			}
		}
		if sd.Exit != "" {
			if st.Actions.OnExit, err = reg.Exit(sd.Exit, name); err != nil {
				return domain.MachineDefinition{}, fmt.Errorf("state %q exit: %w", name, err)
			}
		}
		if st.Transitions, st.Default, err = compileRules(reg, name, sd.Transitions); err != nil {
			return domain.MachineDefinition{}, fmt.Errorf("state %q: %w", name, err)
		}
		def.States[name] = st
	}

	var err error
	if def.Transitions, def.Default, err = compileRules(reg, "", d.Transitions); err != nil {
		return domain.MachineDefinition{}, fmt.Errorf("global transitions: %w", err)
	}

	if err := validator.Validate(def); err != nil {
		return domain.MachineDefinition{}, err
	}
	return def, nil
}

// compileRules splits the default key off a rule table.
func compileRules(reg *registry.Registry, from string, docs map[string]RuleDocument) (map[string]domain.Rule, domain.Rule, error) {
	rules := make(map[string]domain.Rule, len(docs))
	var fallback domain.Rule

	for event, rd := range docs {
		rule, err := compileRule(reg, from, rd)
		if err != nil {
			return nil, domain.Rule{}, fmt.Errorf("event %q: %w", event, err)
		}
		if event == domain.DefaultEvent {
			fallback = rule
			continue
		}
		rules[event] = rule
	}
	return rules, fallback, nil
}

func compileRule(reg *registry.Registry, from string, rd RuleDocument) (domain.Rule, error) {
	if rd.Action == "" {
		return domain.To(rd.To), nil
	}
	action, err := reg.Transition(rd.Action, from, rd.To)
	if err != nil {
		return domain.Rule{}, err
	}
	return domain.Edge(rd.To, action), nil
}
