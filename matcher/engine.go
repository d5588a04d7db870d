package matcher

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/konveyor-labs/tornado/action"
	"github.com/konveyor-labs/tornado/event"
	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/selector"
	"github.com/konveyor-labs/tornado/tracing"
	"github.com/konveyor-labs/tornado/value"
)

// Engine is a compiled processing graph, ready to evaluate events
// concurrently (spec §4.7/§5). The zero value is not usable; build one with
// Compile.
type Engine struct {
	root compiledFilter
}

// FilterStatus reports what happened when a Filter node was reached.
type FilterStatus int

const (
	// FilterInactive covers both an explicitly inactive filter and one
	// excluded by the selectors passed to Process; neither evaluates its
	// predicate nor recurses into children (spec §4.7).
	FilterInactive FilterStatus = iota
	FilterNotMatched
	FilterMatched
)

func (s FilterStatus) String() string {
	switch s {
	case FilterInactive:
		return "inactive"
	case FilterNotMatched:
		return "not_matched"
	case FilterMatched:
		return "matched"
	default:
		return "unknown"
	}
}

// RuleStatus reports the outcome of evaluating one rule within a ruleset.
type RuleStatus int

const (
	// RuleSkipped covers a rule excluded by selectors. A rule never reached
	// because an earlier sibling matched without do_continue is omitted from
	// the result rather than reported as skipped.
	RuleSkipped RuleStatus = iota
	RuleNotMatched
	// RulePartiallyMatched means the rule's predicate matched but an
	// extractor or action subsequently failed (spec §4.4/§4.6's atomic
	// per-rule failure semantics).
	RulePartiallyMatched
	RuleMatched
)

func (s RuleStatus) String() string {
	switch s {
	case RuleSkipped:
		return "skipped"
	case RuleNotMatched:
		return "not_matched"
	case RulePartiallyMatched:
		return "partially_matched"
	case RuleMatched:
		return "matched"
	default:
		return "unknown"
	}
}

// ProcessedNode is the per-event counterpart of compiledNode: exactly one of
// the three is populated.
type ProcessedNode struct {
	Filter   *ProcessedFilter
	Iterator *ProcessedIterator
	Ruleset  *ProcessedRuleset
}

// ProcessedFilter is the per-event result of evaluating a Filter node.
type ProcessedFilter struct {
	Name     string
	Status   FilterStatus
	Children []ProcessedNode
}

// ProcessedIterator is the per-event result of evaluating an Iterator node:
// one ProcessedIteratorElement per element the target resolved to.
type ProcessedIterator struct {
	Name     string
	Elements []ProcessedIteratorElement
}

// ProcessedIteratorElement pairs an iteration index with the results of
// evaluating the iterator's children with "item" bound to that element.
type ProcessedIteratorElement struct {
	Index    int
	Children []ProcessedNode
}

// ProcessedRuleset is the per-event result of evaluating a Ruleset node.
type ProcessedRuleset struct {
	Name  string
	Rules []ProcessedRule
	// Vars is this ruleset's final extracted-variable snapshot (spec
	// §4.7's per-event result tree).
	Vars map[string]map[string]value.Value
}

// ProcessedRule is the per-event result of evaluating one rule.
type ProcessedRule struct {
	Name    string
	Status  RuleStatus
	Error   string
	Actions []*action.Resolved
}

// ProcessedEvent is the full per-event result tree returned by Process.
type ProcessedEvent struct {
	TraceID string
	Root    ProcessedFilter
}

// evalState threads the mutable per-traversal pieces (the accessor context
// and the concrete vars scope it wraps) through evaluation. accessor.Context
// only exposes vars through the narrow VarsScope interface, so the concrete
// *event.ExtractedVars is carried alongside it to support Copy() when a
// Filter node fans out into concurrent children (spec §5).
type evalState struct {
	vars *event.ExtractedVars
	ctx  *accessor.Context
}

func (s evalState) fork() evalState {
	v := s.vars.Copy()
	ctx := *s.ctx
	ctx.Vars = v
	return evalState{vars: v, ctx: &ctx}
}

// Process evaluates ev against the compiled graph, running concurrently
// wherever a Filter node has multiple children (spec §5), while preserving
// each child's position in its parent's Children slice. selectors, if any,
// restrict evaluation to Filter/Ruleset/Rule nodes matching every selector
// (spec §4.8); a node excluded by a selector reports FilterInactive or
// RuleSkipped without recursing further.
func (e *Engine) Process(ctx context.Context, ev event.Event, selectors ...*selector.Selector) ProcessedEvent {
	ctx, span := tracing.StartNewSpan(ctx, "matcher.Process")
	defer span.End()
	vars := event.NewExtractedVars(8)
	st := evalState{vars: vars, ctx: &accessor.Context{Event: ev.Root(), Vars: vars}}
	return ProcessedEvent{TraceID: ev.TraceID, Root: evalFilter(ctx, &e.root, st, selectors)}
}

func matchesAll(l selector.Labeled, selectors []*selector.Selector) bool {
	for _, sel := range selectors {
		ok, err := sel.Matches(l)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func evalFilter(ctx context.Context, f *compiledFilter, st evalState, selectors []*selector.Selector) ProcessedFilter {
	if !f.active {
		return ProcessedFilter{Name: f.name, Status: FilterInactive}
	}
	if !matchesAll(f, selectors) {
		return ProcessedFilter{Name: f.name, Status: FilterInactive}
	}
	matched := true
	if f.where != nil {
		matched = f.where.Evaluate(st.ctx)
	}
	if !matched {
		return ProcessedFilter{Name: f.name, Status: FilterNotMatched}
	}
	return ProcessedFilter{Name: f.name, Status: FilterMatched, Children: evalChildren(ctx, f.children, st, selectors)}
}

// evalChildren fans a Filter node's children out across goroutines — each
// with its own forked vars scope to avoid racing on concurrent extractor
// writes (spec §5) — while keeping results in declaration order.
func evalChildren(ctx context.Context, nodes []compiledNode, st evalState, selectors []*selector.Selector) []ProcessedNode {
	out := make([]ProcessedNode, len(nodes))
	if len(nodes) == 0 {
		return out
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			out[i] = evalNode(gctx, n, st.fork(), selectors)
			return nil
		})
	}
	_ = g.Wait() // evalNode never returns an error; Wait only joins the goroutines
	return out
}

func evalNode(ctx context.Context, n compiledNode, st evalState, selectors []*selector.Selector) ProcessedNode {
	switch {
	case n.filter != nil:
		pf := evalFilter(ctx, n.filter, st, selectors)
		return ProcessedNode{Filter: &pf}
	case n.iterator != nil:
		pi := evalIterator(ctx, n.iterator, st, selectors)
		return ProcessedNode{Iterator: &pi}
	case n.ruleset != nil:
		pr := evalRuleset(n.ruleset, st, selectors)
		return ProcessedNode{Ruleset: &pr}
	default:
		return ProcessedNode{}
	}
}

// evalIterator resolves the target to an array and traverses elements in
// order, binding "item" to each one. evalChildren forks the vars scope for
// every child of every element, so variables extracted while handling one
// element are not visible to later elements. A target that fails to resolve to an array
// yields zero elements rather than an error (spec §4.7 open question).
func evalIterator(ctx context.Context, it *compiledIterator, st evalState, selectors []*selector.Selector) ProcessedIterator {
	resolved, ok := accessor.Resolve(it.target, st.ctx)
	elems := []ProcessedIteratorElement{}
	if ok {
		if arr, ok := resolved.AsArray(); ok {
			for idx, el := range arr {
				itemCtx := *st.ctx
				itemCtx.CustomRoots = map[string]value.Value{itemNamespace: el}
				itemState := evalState{vars: st.vars, ctx: &itemCtx}
				elems = append(elems, ProcessedIteratorElement{
					Index:    idx,
					Children: evalChildren(ctx, it.nodes, itemState, selectors),
				})
			}
		}
	}
	return ProcessedIterator{Name: it.name, Elements: elems}
}

// evalRuleset runs rules in declaration order against a shared vars scope.
// Only a true match (step 4) with do_continue = false stops the ruleset;
// remaining rules are then omitted from the result entirely, not merely
// marked skipped (spec §4.7 step 4, seed scenario 3). A rule that reaches
// RulePartiallyMatched (an extractor or action failed in steps 2/3) always
// falls through to the next rule regardless of do_continue. A rule excluded
// by a selector, or every rule of a ruleset excluded by one, is reported as
// RuleSkipped and does not affect the stop condition.
func evalRuleset(rs *compiledRuleset, st evalState, selectors []*selector.Selector) ProcessedRuleset {
	results := make([]ProcessedRule, 0, len(rs.rules))
	rulesetSelected := matchesAll(rs, selectors)
	for i := range rs.rules {
		r := &rs.rules[i]
		if !rulesetSelected || !matchesAll(r, selectors) {
			results = append(results, ProcessedRule{Name: r.name, Status: RuleSkipped})
			continue
		}
		ruleCtx := *st.ctx
		ruleCtx.CurrentRule = r.name
		ruleCtx.SiblingRules = rs.siblings
		ruleCtx.Ruleset = rulesetRoot(rs)
		pr := evalRule(r, st.vars, &ruleCtx)
		results = append(results, pr)
		if pr.Status == RuleMatched && !r.doContinue {
			break
		}
	}
	return ProcessedRuleset{Name: rs.name, Rules: results, Vars: st.vars.Snapshot()}
}

func rulesetRoot(rs *compiledRuleset) value.Value {
	names := make([]value.Value, 0, len(rs.siblings))
	siblingNames := make([]string, 0, len(rs.siblings))
	for name := range rs.siblings {
		siblingNames = append(siblingNames, name)
	}
	sort.Strings(siblingNames)
	for _, name := range siblingNames {
		names = append(names, value.Text(name))
	}
	return value.Object(map[string]value.Value{
		"name":  value.Text(rs.name),
		"rules": value.Array(names),
	})
}

func evalRule(r *compiledRule, vars *event.ExtractedVars, ctx *accessor.Context) ProcessedRule {
	matched := true
	if r.where != nil {
		matched = r.where.Evaluate(ctx)
	}
	if !matched {
		return ProcessedRule{Name: r.name, Status: RuleNotMatched}
	}
	extracted := make(map[string]value.Value, len(r.with))
	for _, ce := range r.with {
		v, err := ce.ex.Evaluate(ctx)
		if err != nil {
			return ProcessedRule{Name: r.name, Status: RulePartiallyMatched, Error: err.Error()}
		}
		extracted[ce.varName] = v
	}
	for name, v := range extracted {
		vars.Set(r.name, name, v)
	}
	resolved := make([]*action.Resolved, 0, len(r.actions))
	for _, tmpl := range r.actions {
		res, err := action.Resolve(tmpl, ctx, false)
		if err != nil {
			// spec §4.7 step 3: a failed action discards every action
			// already resolved for this rule, not just the failing one.
			return ProcessedRule{Name: r.name, Status: RulePartiallyMatched, Error: err.Error()}
		}
		resolved = append(resolved, res)
	}
	return ProcessedRule{Name: r.name, Status: RuleMatched, Actions: resolved}
}
