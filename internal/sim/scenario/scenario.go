// Package scenario loads planning scenarios: an initial world, the actions
// available to each agent, and what each agent wants.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
	"hexplan.ai/internal/goap/goals"
	"hexplan.ai/internal/goap/grounding"
	"hexplan.ai/internal/sim/tuning"
)

var ErrInvalid = errors.New("scenario: invalid")

type Scenario struct {
	ID               string            `json:"id"`
	MaxNodesPerAgent int               `json:"max_nodes_per_agent,omitempty"`
	Facts            []facts.Fact      `json:"facts"`
	Templates        []action.Instance `json:"templates,omitempty"`
	Attacks          []AttackSpec      `json:"attacks,omitempty"`
	Moves            []MoveSpec        `json:"moves,omitempty"`
	Agents           []AgentSpec       `json:"agents"`

	// Digest is the sha256 of the canonical JSON the scenario was decoded from.
	Digest string `json:"-"`

	longTerm map[string][]goals.LongTerm
}

// AttackSpec grounds attack instances for one agent, or for everyone when
// Agent is empty. Nil numbers fall back to tuning.
type AttackSpec struct {
	Agent          string   `json:"agent,omitempty"`
	Name           string   `json:"name,omitempty"`
	Damage         *int     `json:"damage,omitempty"`
	Cost           *float64 `json:"cost,omitempty"`
	EnemyAtKey     string   `json:"enemy_at_key,omitempty"`
	EnemyAliveKey  string   `json:"enemy_alive_key,omitempty"`
	EnemyHealthKey string   `json:"enemy_health_key,omitempty"`
	AtKey          string   `json:"at_key,omitempty"`
}

type MoveSpec struct {
	Agent   string   `json:"agent"`
	Cost    *float64 `json:"cost,omitempty"`
	Radius  *int     `json:"radius,omitempty"`
	AtKey   string   `json:"at_key,omitempty"`
	Blocked [][2]int `json:"blocked,omitempty"`
}

type AgentSpec struct {
	ID       string        `json:"id"`
	Goals    []action.Goal `json:"goals,omitempty"`
	LongTerm []string      `json:"long_term,omitempty"`
}

// Normalize fills unset budgets and attack/move numbers from t.
func (s *Scenario) Normalize(t tuning.Tuning) {
	if s.MaxNodesPerAgent <= 0 {
		s.MaxNodesPerAgent = t.MaxNodesPerAgent
	}
	for i := range s.Attacks {
		s.Attacks[i].Defaults(t)
	}
	for i := range s.Moves {
		s.Moves[i].Defaults(t)
	}
}

// Defaults fills unset name and numbers from t.
func (a *AttackSpec) Defaults(t tuning.Tuning) {
	if a.Name == "" {
		a.Name = t.Attack.Name
	}
	if a.Damage == nil {
		d := t.Attack.Damage
		a.Damage = &d
	}
	if a.Cost == nil {
		c := t.Attack.Cost
		a.Cost = &c
	}
}

func (m *MoveSpec) Defaults(t tuning.Tuning) {
	if m.Cost == nil {
		c := t.Move.Cost
		m.Cost = &c
	}
	if m.Radius == nil {
		r := t.Move.Radius
		m.Radius = &r
	}
}

// Validate checks references the schema cannot express and parses long-term
// goals. It must run before Goals.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id must not be empty", ErrInvalid)
	}
	if len(s.Agents) == 0 {
		return fmt.Errorf("%w: %s: no agents", ErrInvalid, s.ID)
	}
	known := make(map[string]bool, len(s.Agents))
	s.longTerm = make(map[string][]goals.LongTerm, len(s.Agents))
	for _, a := range s.Agents {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("%w: %s: agent id must not be empty", ErrInvalid, s.ID)
		}
		if known[a.ID] {
			return fmt.Errorf("%w: %s: duplicate agent %s", ErrInvalid, s.ID, a.ID)
		}
		known[a.ID] = true
		lt, err := goals.ParseAll(a.LongTerm)
		if err != nil {
			return fmt.Errorf("%w: %s: agent %s: %v", ErrInvalid, s.ID, a.ID, err)
		}
		s.longTerm[a.ID] = lt
	}
	for _, tpl := range s.Templates {
		if tpl.Agent != "" && !known[tpl.Agent] {
			return fmt.Errorf("%w: %s: template %s names unknown agent %s", ErrInvalid, s.ID, tpl.Name, tpl.Agent)
		}
	}
	for _, a := range s.Attacks {
		if a.Agent != "" && !known[a.Agent] {
			return fmt.Errorf("%w: %s: attack names unknown agent %s", ErrInvalid, s.ID, a.Agent)
		}
	}
	for _, m := range s.Moves {
		if !known[m.Agent] {
			return fmt.Errorf("%w: %s: move names unknown agent %s", ErrInvalid, s.ID, m.Agent)
		}
	}
	return nil
}

// World returns a fresh state holding the scenario's facts.
func (s *Scenario) World() *facts.State {
	return facts.FromFacts(s.Facts...)
}

func (s *Scenario) Order() []string {
	out := make([]string, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = a.ID
	}
	return out
}

// Instances grounds the flat action list against st: static templates first,
// then attacks, then moves, each in file order.
func (s *Scenario) Instances(st *facts.State) []action.Instance {
	out := make([]action.Instance, 0, len(s.Templates))
	for _, tpl := range s.Templates {
		out = append(out, action.Instance{
			Name:          tpl.Name,
			Preconditions: append([]facts.Fact(nil), tpl.Preconditions...),
			Effects:       append([]facts.Fact(nil), tpl.Effects...),
			Cost:          tpl.Cost,
			Agent:         tpl.Agent,
		})
	}
	for _, a := range s.Attacks {
		out = append(out, a.Grounder().Ground(st, a.Agent)...)
	}
	for _, m := range s.Moves {
		out = append(out, m.Grounder().Ground(st, m.Agent)...)
	}
	return out
}

func (a AttackSpec) Grounder() grounding.Attack {
	g := grounding.Attack{
		Name:           a.Name,
		EnemyAtKey:     a.EnemyAtKey,
		EnemyAliveKey:  a.EnemyAliveKey,
		EnemyHealthKey: a.EnemyHealthKey,
		AtKey:          a.AtKey,
	}
	if a.Damage != nil {
		g.Damage = *a.Damage
	}
	if a.Cost != nil {
		g.Cost = *a.Cost
	}
	return g
}

func (m MoveSpec) Grounder() grounding.Moves {
	g := grounding.Moves{AtKey: m.AtKey}
	if m.Cost != nil {
		g.Cost = *m.Cost
	}
	if m.Radius != nil {
		g.Radius = *m.Radius
	}
	if len(m.Blocked) > 0 {
		blocked := make(map[facts.HexCoord]bool, len(m.Blocked))
		for _, b := range m.Blocked {
			blocked[facts.Hex(b[0], b[1])] = true
		}
		g.Passable = func(h facts.HexCoord) bool { return !blocked[h] }
	}
	return g
}

// LongTerm returns the agent's parsed strategic goals.
func (s *Scenario) LongTerm(agent string) []goals.LongTerm {
	return s.longTerm[agent]
}

// Goals lists, per agent, explicit goals in file order followed by the
// decomposition of every unachieved long-term goal, highest priority first.
// Goals that already hold in st are left out.
func (s *Scenario) Goals(st *facts.State) map[string][]action.Goal {
	out := make(map[string][]action.Goal, len(s.Agents))
	for _, a := range s.Agents {
		var list []action.Goal
		for _, g := range a.Goals {
			if !g.SatisfiedBy(st) {
				list = append(list, g)
			}
		}
		list = append(list, goals.Pending(s.longTerm[a.ID], st, a.ID)...)
		out[a.ID] = list
	}
	return out
}

// Done reports whether every explicit goal holds in st and every long-term
// goal is achieved.
func (s *Scenario) Done(st *facts.State) bool {
	for _, a := range s.Agents {
		for _, g := range a.Goals {
			if !g.SatisfiedBy(st) {
				return false
			}
		}
		for _, lt := range s.longTerm[a.ID] {
			if !lt.Achieved(st, a.ID) {
				return false
			}
		}
	}
	return true
}
