// Package grounding expands action definitions into concrete instances by
// reading the current world state. Grounding runs once before a search, never
// per search node.
package grounding

import (
	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

type Grounder interface {
	Ground(s *facts.State, agent string) []action.Instance
}

// Static lifts fixed templates without looking at the state.
type Static []action.Template

func (st Static) Ground(_ *facts.State, agent string) []action.Instance {
	return action.GroundAll(st, agent)
}

// All concatenates the output of each grounder in order.
func All(s *facts.State, agent string, gs ...Grounder) []action.Instance {
	var out []action.Instance
	for _, g := range gs {
		out = append(out, g.Ground(s, agent)...)
	}
	return out
}
