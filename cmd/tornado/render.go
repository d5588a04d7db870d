package main

import (
	"github.com/konveyor-labs/tornado/action"
	"github.com/konveyor-labs/tornado/matcher"
	outtornado "github.com/konveyor-labs/tornado/output/v1/tornado"
)

// renderEvent flattens a matcher.ProcessedEvent into the on-disk Result
// shape: value.Value carries its tag in unexported fields, so every Value
// reachable from the result tree is converted through ToAny() before it
// reaches an encoder.
func renderEvent(pe matcher.ProcessedEvent) outtornado.Result {
	return outtornado.Result{TraceID: pe.TraceID, Root: renderFilter(pe.Root)}
}

func renderFilter(f matcher.ProcessedFilter) outtornado.FilterResult {
	out := outtornado.FilterResult{Name: f.Name, Status: f.Status.String()}
	for _, c := range f.Children {
		out.Children = append(out.Children, renderNode(c))
	}
	return out
}

func renderNode(n matcher.ProcessedNode) outtornado.NodeResult {
	var out outtornado.NodeResult
	switch {
	case n.Filter != nil:
		rf := renderFilter(*n.Filter)
		out.Filter = &rf
	case n.Iterator != nil:
		ri := renderIterator(*n.Iterator)
		out.Iterator = &ri
	case n.Ruleset != nil:
		rr := renderRuleset(*n.Ruleset)
		out.Ruleset = &rr
	}
	return out
}

func renderIterator(it matcher.ProcessedIterator) outtornado.IteratorResult {
	out := outtornado.IteratorResult{Name: it.Name}
	for _, elem := range it.Elements {
		re := outtornado.IteratorElementResult{Index: elem.Index}
		for _, c := range elem.Children {
			re.Children = append(re.Children, renderNode(c))
		}
		out.Elements = append(out.Elements, re)
	}
	return out
}

func renderRuleset(rs matcher.ProcessedRuleset) outtornado.RulesetResult {
	out := outtornado.RulesetResult{Name: rs.Name}
	for _, r := range rs.Rules {
		out.Rules = append(out.Rules, renderRule(r))
	}
	if len(rs.Vars) > 0 {
		out.Vars = make(map[string]map[string]any, len(rs.Vars))
		for ruleName, vars := range rs.Vars {
			m := make(map[string]any, len(vars))
			for k, v := range vars {
				m[k] = v.ToAny()
			}
			out.Vars[ruleName] = m
		}
	}
	return out
}

func renderRule(r matcher.ProcessedRule) outtornado.RuleResult {
	out := outtornado.RuleResult{Name: r.Name, Status: r.Status.String(), Error: r.Error}
	for _, a := range r.Actions {
		out.Actions = append(out.Actions, renderAction(a))
	}
	return out
}

func renderAction(a *action.Resolved) outtornado.ActionResult {
	return outtornado.ActionResult{ID: a.ID, Payload: a.Payload.ToAny(), Dynamic: a.Dynamic}
}
