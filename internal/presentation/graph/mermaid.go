package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aleung/fsm/pkg/domain"
)

// anyStateID is the pseudo-node global rules are drawn from.
const anyStateID = "__any__"

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a definition.
// It applies semantic styling:
// - Initial state: ((Circle))
// - State with entry/exit actions: [[Subroutine]]
// - Default: [Rectangle]
// - Rule with a transition action: thick arrow
// - Default rule: dotted arrow
// Global rules are drawn from a "*" pseudo-state.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(def domain.MachineDefinition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range sortedKeys(def.States) {
		st := def.States[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == def.InitialState:
			opener, closer = "((", "))"
		case st.Actions.OnEntry != nil || st.Actions.OnExit != nil:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(name), closer))

		writeRules(&sb, safeID, st.Transitions, st.Default)
	}

	if len(def.Transitions) > 0 || !def.Default.IsZero() {
		sb.WriteString(fmt.Sprintf("    %s{{\"*\"}}\n", anyStateID))
		writeRules(&sb, anyStateID, def.Transitions, def.Default)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedStates {
			if _, ok := def.States[name]; !ok {
				continue
			}
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if _, ok := def.States[overlay.CurrentState]; ok {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func writeRules(sb *strings.Builder, fromID string, rules map[string]domain.Rule, fallback domain.Rule) {
	for _, event := range sortedKeys(rules) {
		writeEdge(sb, fromID, event, rules[event], false)
	}
	if !fallback.IsZero() {
		writeEdge(sb, fromID, domain.DefaultEvent, fallback, true)
	}
}

func writeEdge(sb *strings.Builder, fromID, event string, rule domain.Rule, isDefault bool) {
	if rule.IsZero() {
		return
	}
	label := escapeLabel(event)
	arrow := fmt.Sprintf("-- \"%s\" -->", label)
	switch {
	case isDefault:
		arrow = fmt.Sprintf("-. \"%s\" .->", label)
	case rule.Action() != nil:
		arrow = fmt.Sprintf("== \"%s\" ==>", label)
	}
	sb.WriteString(fmt.Sprintf("    %s %s %s\n", fromID, arrow, sanitizeMermaidID(rule.Target())))
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
