// Package goals holds strategic objectives that span several planning rounds.
//
// A long-term goal never reaches the planner directly. Each round it is
// decomposed against the current world into one single-fact goal that moves
// the unit closer, and checked for completion. Unit facts follow the
// Unit:<id>:<Field> convention; castles use Castle:<id>:<Field>.
package goals

import (
	"sort"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

// StepLimit caps how far a single round may move a unit along each axis.
const StepLimit = 3

// LongTerm is implemented by every strategic goal variant.
type LongTerm interface {
	String() string
	Decompose(s *facts.State, unit string) (action.Goal, bool)
	Achieved(s *facts.State, unit string) bool
	Priority() float64
}

func UnitKey(unit, field string) string { return "Unit:" + unit + ":" + field }

func CastleKey(id, field string) string { return "Castle:" + id + ":" + field }

func unitAt(s *facts.State, unit string) (facts.HexCoord, facts.Value, bool) {
	v, ok := s.Get(UnitKey(unit, "At"))
	if !ok {
		return facts.HexCoord{}, facts.Value{}, false
	}
	h, ok := v.Location()
	return h, v, ok
}

func intFact(s *facts.State, key string) (int, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// locationLike encodes h the same way as ref so the goal can match a fact
// written in either form.
func locationLike(ref facts.Value, h facts.HexCoord) facts.Value {
	if ref.Kind() == facts.KindStr {
		return facts.Str(h.String())
	}
	return facts.HexValue(h)
}

// stepToward moves at most StepLimit along each axis.
func stepToward(from, to facts.HexCoord) facts.HexCoord {
	return facts.Hex(from.Q+clampStep(to.Q-from.Q), from.R+clampStep(to.R-from.R))
}

func clampStep(d int) int {
	switch {
	case d > StepLimit:
		return StepLimit
	case d < -StepLimit:
		return -StepLimit
	default:
		return d
	}
}

// reachGoal is the per-round goal toward target: the target itself once it is
// within StepLimit hexes, an intermediate hex otherwise.
func reachGoal(s *facts.State, unit string, target facts.HexCoord) (action.Goal, bool) {
	cur, ref, ok := unitAt(s, unit)
	if !ok {
		return action.Goal{}, false
	}
	next := target
	if cur.Distance(target) > StepLimit {
		next = stepToward(cur, target)
	}
	return action.NewGoal(UnitKey(unit, "At"), locationLike(ref, next)), true
}

func closest(from facts.HexCoord, hs []facts.HexCoord) (facts.HexCoord, bool) {
	if len(hs) == 0 {
		return facts.HexCoord{}, false
	}
	best := hs[0]
	for _, h := range hs[1:] {
		if from.Distance(h) < from.Distance(best) {
			best = h
		}
	}
	return best, true
}

func engageGoal(s *facts.State, unit string) (action.Goal, bool) {
	if n, ok := intFact(s, UnitKey(unit, "NearbyEnemies")); ok && n > 0 {
		return action.NewGoal(UnitKey(unit, "InCombat"), facts.Bool(true)), true
	}
	return action.Goal{}, false
}

func holdGoal(s *facts.State, unit string) (action.Goal, bool) {
	v, ok := s.Get(UnitKey(unit, "At"))
	if !ok {
		return action.Goal{}, false
	}
	return action.NewGoal(UnitKey(unit, "At"), v), true
}

// ByPriority returns a copy sorted by descending priority. Ties keep input order.
func ByPriority(gs []LongTerm) []LongTerm {
	out := append([]LongTerm(nil), gs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() > out[j].Priority() })
	return out
}

// Select picks the highest priority goal that is not yet achieved and can be
// decomposed in s.
func Select(gs []LongTerm, s *facts.State, unit string) (LongTerm, action.Goal, bool) {
	for _, g := range ByPriority(gs) {
		if g.Achieved(s, unit) {
			continue
		}
		if short, ok := g.Decompose(s, unit); ok {
			return g, short, true
		}
	}
	return nil, action.Goal{}, false
}

// Pending decomposes every unachieved goal in priority order.
func Pending(gs []LongTerm, s *facts.State, unit string) []action.Goal {
	var out []action.Goal
	for _, g := range ByPriority(gs) {
		if g.Achieved(s, unit) {
			continue
		}
		if short, ok := g.Decompose(s, unit); ok {
			out = append(out, short)
		}
	}
	return out
}
