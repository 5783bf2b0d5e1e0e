// Package action defines action templates, grounded action instances and
// single-fact goals.
package action

import (
	"hexplan.ai/internal/goap/facts"
)

// Template is a reusable action definition not tied to any agent or run.
type Template struct {
	Name          string       `json:"name"`
	Preconditions []facts.Fact `json:"pre"`
	Effects       []facts.Fact `json:"eff"`
	Cost          float64      `json:"cost"`
}

func (t Template) IsApplicable(s *facts.State) bool {
	return allSatisfied(t.Preconditions, s)
}

// Instance is a concrete action ready for planning. An empty Agent means any
// agent may use it.
type Instance struct {
	Name          string       `json:"name"`
	Preconditions []facts.Fact `json:"pre"`
	Effects       []facts.Fact `json:"eff"`
	Cost          float64      `json:"cost"`
	Agent         string       `json:"agent,omitempty"`
}

func (a Instance) IsApplicable(s *facts.State) bool {
	return allSatisfied(a.Preconditions, s)
}

// VisibleTo reports whether agent may use this instance.
func (a Instance) VisibleTo(agent string) bool {
	return a.Agent == "" || a.Agent == agent
}

// Ground lifts a template into an instance. No state is inspected.
func Ground(t Template, agent string) Instance {
	return Instance{
		Name:          t.Name,
		Preconditions: append([]facts.Fact(nil), t.Preconditions...),
		Effects:       append([]facts.Fact(nil), t.Effects...),
		Cost:          t.Cost,
		Agent:         agent,
	}
}

// GroundAll lifts every template with the same agent tag.
func GroundAll(ts []Template, agent string) []Instance {
	out := make([]Instance, 0, len(ts))
	for _, t := range ts {
		out = append(out, Ground(t, agent))
	}
	return out
}

func allSatisfied(pre []facts.Fact, s *facts.State) bool {
	for _, p := range pre {
		if !s.Satisfies(p.Key, p.Value) {
			return false
		}
	}
	return true
}

// Goal is a single target fact. A state is a goal state iff the key is present
// with exactly this value.
type Goal struct {
	Key   string      `json:"key"`
	Value facts.Value `json:"value"`
}

func NewGoal(key string, v facts.Value) Goal { return Goal{Key: key, Value: v} }

func (g Goal) SatisfiedBy(s *facts.State) bool { return s.Satisfies(g.Key, g.Value) }

func (g Goal) String() string { return g.Key + "=" + g.Value.String() }
