package validator

import (
	"sort"

	"github.com/aleung/fsm/pkg/domain"
)

// Validate checks that every state referenced by def is defined and that no
// state uses a reserved name. All problems are reported at once.
func Validate(def domain.MachineDefinition) error {
	var missing []string
	for _, ref := range References(def) {
		if _, ok := def.States[ref]; !ok {
			missing = append(missing, ref)
		}
	}

	var reserved []string
	if _, ok := def.States[domain.InitState]; ok {
		reserved = append(reserved, domain.InitState)
	}

	if len(missing) > 0 || len(reserved) > 0 {
		return &domain.DefinitionError{Missing: missing, Reserved: reserved}
	}
	return nil
}

// References returns every state name referenced by def, deduplicated, in a
// stable order: the initial state, then each state's rules (states and
// events sorted by name, default last), then the global rules.
func References(def domain.MachineDefinition) []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}

	add(def.InitialState)

	for _, name := range sortedKeys(def.States) {
		st := def.States[name]
		for _, target := range ruleTargets(st.Transitions, st.Default) {
			add(target)
		}
	}

	for _, target := range ruleTargets(def.Transitions, def.Default) {
		add(target)
	}

	return refs
}

func ruleTargets(rules map[string]domain.Rule, fallback domain.Rule) []string {
	var targets []string
	for _, evt := range sortedKeys(rules) {
		if r := rules[evt]; !r.IsZero() {
			targets = append(targets, r.Target())
		}
	}
	if !fallback.IsZero() {
		targets = append(targets, fallback.Target())
	}
	return targets
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
