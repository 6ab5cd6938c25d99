package graph

import (
	"fmt"
	"strings"

	"github.com/aleung/fsm/pkg/domain"
)

// GenerateMarkdown describes a definition as a Markdown document: a summary,
// one rule table per state, the global rules and the Mermaid chart.
func GenerateMarkdown(name string, def domain.MachineDefinition) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", name))
	sb.WriteString(fmt.Sprintf("Initial state: `%s`. %d states, %d global rules.\n\n",
		def.InitialState, len(def.States), ruleCount(def.Transitions, def.Default)))

	sb.WriteString("## States\n\n")
	for _, stateName := range sortedKeys(def.States) {
		st := def.States[stateName]
		sb.WriteString(fmt.Sprintf("### %s\n\n", stateName))
		if stateName == def.InitialState {
			sb.WriteString("- initial state\n")
		}
		if st.Actions.OnEntry != nil {
			sb.WriteString("- runs an entry action\n")
		}
		if st.Actions.OnExit != nil {
			sb.WriteString("- runs an exit action\n")
		}
		if stateName == def.InitialState || st.Actions.OnEntry != nil || st.Actions.OnExit != nil {
			sb.WriteString("\n")
		}
		writeRuleTable(&sb, st.Transitions, st.Default)
	}

	if ruleCount(def.Transitions, def.Default) > 0 {
		sb.WriteString("## Global rules\n\n")
		writeRuleTable(&sb, def.Transitions, def.Default)
	}

	sb.WriteString("## Diagram\n\n```mermaid\n")
	sb.WriteString(GenerateMermaid(def, nil))
	sb.WriteString("```\n")

	return sb.String()
}

func writeRuleTable(sb *strings.Builder, rules map[string]domain.Rule, fallback domain.Rule) {
	if ruleCount(rules, fallback) == 0 {
		sb.WriteString("_No outgoing rules._\n\n")
		return
	}
	sb.WriteString("| Event | Target | Action |\n|---|---|---|\n")
	for _, event := range sortedKeys(rules) {
		writeRuleRow(sb, fmt.Sprintf("`%s`", event), rules[event])
	}
	if !fallback.IsZero() {
		writeRuleRow(sb, "_default_", fallback)
	}
	sb.WriteString("\n")
}

func writeRuleRow(sb *strings.Builder, event string, rule domain.Rule) {
	action := "no"
	if rule.Action() != nil {
		action = "yes"
	}
	sb.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", event, rule.Target(), action))
}

func ruleCount(rules map[string]domain.Rule, fallback domain.Rule) int {
	n := 0
	for _, r := range rules {
		if !r.IsZero() {
			n++
		}
	}
	if !fallback.IsZero() {
		n++
	}
	return n
}
