package domain

// RuleKind tags the variant held by a Rule.
type RuleKind int

const (
	// RuleNone is the zero Rule: no rule defined.
	RuleNone RuleKind = iota
	// RuleTarget is a bare target state name.
	RuleTarget
	// RuleEdge is a target plus an optional edge-scoped action.
	RuleEdge
)

func (k RuleKind) String() string {
	switch k {
	case RuleNone:
		return "none"
	case RuleTarget:
		return "target"
	case RuleEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// Rule maps an event (or a scope's default) to a target state.
// Build one with To or Edge; the zero value means "no rule".
type Rule struct {
	kind   RuleKind
	to     string
	action Action
}

// To returns a rule that moves to target without an edge action.
func To(target string) Rule {
	return Rule{kind: RuleTarget, to: target}
}

// Edge returns a rule that moves to target and runs action between the
// exit hook of the source state and the entry hook of the target.
// action may be nil.
func Edge(target string, action Action) Rule {
	return Rule{kind: RuleEdge, to: target, action: action}
}

func (r Rule) Kind() RuleKind { return r.kind }

func (r Rule) Target() string { return r.to }

// Action returns the edge action, nil for RuleTarget or an edge without one.
func (r Rule) Action() Action {
	if r.kind != RuleEdge {
		return nil
	}
	return r.action
}

func (r Rule) IsZero() bool { return r.kind == RuleNone }
