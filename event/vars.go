package event

import "github.com/konveyor-labs/tornado/value"

// ExtractedVars is the per-event object mapping rule_name -> object(var_name
// -> Value) described in spec §3. It is allocated fresh per event by the
// matcher and mutated only by the ruleset that owns the traversal scope;
// later rules in the same ruleset read earlier rules' variables.
type ExtractedVars struct {
	byRule map[string]map[string]value.Value
}

// NewExtractedVars allocates an empty scope, sized for the given rule count
// the way the teacher's per-event ConditionContext is allocated fresh for
// every rule run (engine.go's processRuleWorker resets m.conditionContext.Template).
func NewExtractedVars(ruleCountHint int) *ExtractedVars {
	return &ExtractedVars{byRule: make(map[string]map[string]value.Value, ruleCountHint)}
}

// Set records var `name` for `rule` once its extractors all succeeded.
func (v *ExtractedVars) Set(rule, name string, val value.Value) {
	if v.byRule[rule] == nil {
		v.byRule[rule] = map[string]value.Value{}
	}
	v.byRule[rule][name] = val
}

// Get looks up a variable by explicit rule name.
func (v *ExtractedVars) Get(rule, name string) (value.Value, bool) {
	m, ok := v.byRule[rule]
	if !ok {
		return value.Value{}, false
	}
	val, ok := m[name]
	return val, ok
}

// RuleObject returns the object(var_name -> Value) for a rule, or an empty
// object if the rule hasn't extracted anything (yet, or ever).
func (v *ExtractedVars) RuleObject(rule string) value.Value {
	m, ok := v.byRule[rule]
	if !ok {
		return value.Object(nil)
	}
	return value.Object(m)
}

// Root resolves the "_variables" accessor root: an object keyed by rule
// name, each value itself an object of that rule's extracted variables.
func (v *ExtractedVars) Root() value.Value {
	obj := make(map[string]value.Value, len(v.byRule))
	for rule, vars := range v.byRule {
		obj[rule] = value.Object(vars)
	}
	return value.Object(obj)
}

// Copy returns a deep copy of the scope, used to give each concurrently
// evaluated filter branch its own mutable vars scope (spec §5) so parallel
// extractor writes from sibling branches never race on the same map.
func (v *ExtractedVars) Copy() *ExtractedVars {
	cp := &ExtractedVars{byRule: make(map[string]map[string]value.Value, len(v.byRule))}
	for rule, vars := range v.byRule {
		m := make(map[string]value.Value, len(vars))
		for k, val := range vars {
			m[k] = val
		}
		cp.byRule[rule] = m
	}
	return cp
}

// Snapshot returns a plain map suitable for embedding into a ProcessedEvent
// result tree (spec §4.7's "final extracted-vars snapshot").
func (v *ExtractedVars) Snapshot() map[string]map[string]value.Value {
	out := make(map[string]map[string]value.Value, len(v.byRule))
	for rule, vars := range v.byRule {
		cp := make(map[string]value.Value, len(vars))
		for k, val := range vars {
			cp[k] = val
		}
		out[rule] = cp
	}
	return out
}
