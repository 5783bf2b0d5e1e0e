package grounding

import (
	"fmt"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

// MoveTemplate builds a one-step move between two concrete hexes.
func MoveTemplate(from, to facts.HexCoord, cost float64) action.Template {
	return action.Template{
		Name:          moveName(from, to),
		Preconditions: []facts.Fact{facts.F(AtKey, facts.HexValue(from))},
		Effects:       []facts.Fact{facts.F(AtKey, facts.HexValue(to))},
		Cost:          cost,
	}
}

func moveName(from, to facts.HexCoord) string {
	return fmt.Sprintf("Move:(%d,%d)->(%d,%d)", from.Q, from.R, to.Q, to.R)
}

// Moves grounds single-hex move edges covering every hex within Radius of the
// unit's current location, so the planner can chain them into paths.
type Moves struct {
	Cost   float64
	Radius int
	// AtKey overrides the position fact (default "At").
	AtKey string
	// Passable filters destination hexes; nil allows all.
	Passable func(facts.HexCoord) bool
}

func (m Moves) Ground(s *facts.State, agent string) []action.Instance {
	atKey := m.AtKey
	if atKey == "" {
		atKey = AtKey
	}
	cur, ok := s.Get(atKey)
	if !ok {
		return nil
	}
	start, ok := cur.Location()
	if !ok || m.Radius <= 0 {
		return nil
	}
	// Keep the unit's position encoding (hex or "q,r" string).
	encode := facts.HexValue
	if cur.Kind() == facts.KindStr {
		encode = func(h facts.HexCoord) facts.Value { return facts.Str(h.String()) }
	}

	var out []action.Instance
	seen := map[facts.HexCoord]bool{start: true}
	queue := []facts.HexCoord{start}
	for len(queue) > 0 {
		from := queue[0]
		queue = queue[1:]
		if start.Distance(from) >= m.Radius {
			continue
		}
		for _, to := range from.Neighbors() {
			if m.Passable != nil && !m.Passable(to) {
				continue
			}
			out = append(out, action.Instance{
				Name:          moveName(from, to),
				Preconditions: []facts.Fact{facts.F(atKey, encode(from))},
				Effects:       []facts.Fact{facts.F(atKey, encode(to))},
				Cost:          m.Cost,
				Agent:         agent,
			})
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	return out
}
