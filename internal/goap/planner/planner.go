// Package planner finds minimum-cost action sequences over a fact state.
//
// The search is forward uniform-cost search: the heuristic is the zero
// function, so f == g and the first goal state popped is optimal among the
// states discovered within the node budget. A real heuristic must be
// admissible and consistent to keep that property.
//
// Callers' states are never mutated; every search node owns a clone.
package planner

import (
	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

// Plan is an ordered list of indices into the action list passed to the search.
type Plan []int

// Result is the full outcome of one search call.
type Result struct {
	Plan     Plan
	Found    bool
	Cost     float64
	Expanded int
}

func heuristic(*facts.State, action.Goal) float64 { return 0 }

// Search runs the forward search. It pops at most maxNodes nodes; running out
// of budget and exhausting the open set both report Found=false.
func Search(start *facts.State, actions []action.Instance, goal action.Goal, maxNodes int) Result {
	var open openSet
	var seq uint64
	open.push(&node{
		state: start.Clone(),
		f:     heuristic(start, goal),
		path:  Plan{},
		seq:   seq,
	})

	bestG := map[string]float64{start.CanonicalKey(): 0}

	expanded := 0
	for open.Len() > 0 {
		n := open.pop()
		expanded++
		if expanded > maxNodes {
			return Result{Expanded: maxNodes}
		}

		if goal.SatisfiedBy(n.state) {
			return Result{Plan: n.path, Found: true, Cost: n.g, Expanded: expanded}
		}

		for i := range actions {
			a := &actions[i]
			if !a.IsApplicable(n.state) {
				continue
			}
			next := n.state.Clone()
			next.ApplyEffects(a.Effects)
			g := n.g + a.Cost
			key := next.CanonicalKey()
			if best, seen := bestG[key]; seen && g >= best {
				continue
			}
			bestG[key] = g

			path := make(Plan, len(n.path), len(n.path)+1)
			copy(path, n.path)
			seq++
			open.push(&node{
				state: next,
				g:     g,
				f:     g + heuristic(next, goal),
				path:  append(path, i),
				seq:   seq,
			})
		}
	}
	return Result{Expanded: expanded}
}

// PlanInstances searches over already grounded instances.
func PlanInstances(start *facts.State, actions []action.Instance, goal action.Goal, maxNodes int) (Plan, bool) {
	r := Search(start, actions, goal, maxNodes)
	return r.Plan, r.Found
}

// PlanTemplates lifts each template to an untagged instance and searches. Indices in
// the returned plan refer to templates.
func PlanTemplates(start *facts.State, templates []action.Template, goal action.Goal, maxNodes int) (Plan, bool) {
	return PlanInstances(start, action.GroundAll(templates, ""), goal, maxNodes)
}

// Cost sums the cost of the planned actions.
func Cost(p Plan, actions []action.Instance) float64 {
	var c float64
	for _, i := range p {
		c += actions[i].Cost
	}
	return c
}

// Apply returns a copy of start with the plan's effects applied in order.
func Apply(start *facts.State, p Plan, actions []action.Instance) *facts.State {
	s := start.Clone()
	for _, i := range p {
		s.ApplyEffects(actions[i].Effects)
	}
	return s
}

// Names resolves plan indices to action names.
func Names(p Plan, actions []action.Instance) []string {
	out := make([]string, 0, len(p))
	for _, i := range p {
		out = append(out, actions[i].Name)
	}
	return out
}
