package file

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Document is the declarative form of a machine definition.
//
//	name: light
//	initial: off
//	states:
//	  off:
//	    entry: log
//	    transitions:
//	      toggle: on
//	  on:
//	    transitions:
//	      toggle: { to: off, action: log }
//	      default: off
//	transitions:
//	  reset: off
type Document struct {
	Name        string                   `json:"name,omitempty" mapstructure:"name"`
	Initial     string                   `json:"initial" mapstructure:"initial"`
	States      map[string]StateDocument `json:"states" mapstructure:"states"`
	Transitions map[string]RuleDocument  `json:"transitions,omitempty" mapstructure:"transitions"`
}

// StateDocument describes one state. Entry and Exit name registry actions.
type StateDocument struct {
	Entry       string                  `json:"entry,omitempty" mapstructure:"entry"`
	Exit        string                  `json:"exit,omitempty" mapstructure:"exit"`
	Transitions map[string]RuleDocument `json:"transitions,omitempty" mapstructure:"transitions"`
}

// RuleDocument is a transition rule. In files it is either a bare target
// name or a {to, action} mapping.
type RuleDocument struct {
	To     string `json:"to" mapstructure:"to"`
	Action string `json:"action,omitempty" mapstructure:"action"`
}

var ruleDocumentType = reflect.TypeOf(RuleDocument{})

// ruleShorthandHook expands "target" into {to: target}.
func ruleShorthandHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != ruleDocumentType || from.Kind() != reflect.String {
		return data, nil
	}
	return map[string]any{"to": data}, nil
}

// Decode converts a generic map (as produced by YAML or JSON decoding) into a
// Document. Unknown keys are rejected.
func Decode(raw map[string]any) (*Document, error) {
	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  ruleShorthandHook,
		ErrorUnused: true,
		Result:      &doc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &doc, nil
}
