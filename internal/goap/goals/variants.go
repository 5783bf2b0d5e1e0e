package goals

import (
	"strconv"
	"strings"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

// KillAllEnemies engages while the unit reports nearby enemies. A nil
// SearchRadius means unlimited.
type KillAllEnemies struct {
	SearchRadius *int
}

func (g KillAllEnemies) String() string {
	if g.SearchRadius == nil {
		return "KillAllEnemies:unlimited"
	}
	return "KillAllEnemies:" + strconv.Itoa(*g.SearchRadius)
}

func (g KillAllEnemies) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	return engageGoal(s, unit)
}

// Achieved treats a missing NearbyEnemies fact as no enemies.
func (g KillAllEnemies) Achieved(s *facts.State, unit string) bool {
	n, ok := intFact(s, UnitKey(unit, "NearbyEnemies"))
	return !ok || n == 0
}

func (KillAllEnemies) Priority() float64 { return 65 }

// Protect keeps the unit on one of Targets, fighting whatever shows up there.
type Protect struct {
	Targets []facts.HexCoord
	Reason  string
}

func (g Protect) String() string { return "Protect:" + joinHexes(g.Targets) + ":" + g.Reason }

func (g Protect) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	cur, _, ok := unitAt(s, unit)
	if !ok {
		return action.Goal{}, false
	}
	target, ok := closest(cur, g.Targets)
	if !ok {
		return action.Goal{}, false
	}
	if cur != target {
		return reachGoal(s, unit, target)
	}
	if goal, ok := engageGoal(s, unit); ok {
		return goal, true
	}
	return holdGoal(s, unit)
}

func (g Protect) Achieved(s *facts.State, unit string) bool {
	cur, _, ok := unitAt(s, unit)
	if !ok {
		return false
	}
	for _, t := range g.Targets {
		if t == cur {
			return true
		}
	}
	return false
}

func (Protect) Priority() float64 { return 50 }

// AreaRadius is how close to a center counts as inside a ReachArea area.
const AreaRadius = 3

type ReachArea struct {
	Centers []facts.HexCoord
	Reason  string
}

func (g ReachArea) String() string { return "ReachArea:" + joinHexes(g.Centers) + ":" + g.Reason }

func (g ReachArea) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	cur, _, ok := unitAt(s, unit)
	if !ok {
		return action.Goal{}, false
	}
	target, ok := closest(cur, g.Centers)
	if !ok {
		return action.Goal{}, false
	}
	return reachGoal(s, unit, target)
}

func (g ReachArea) Achieved(s *facts.State, unit string) bool {
	cur, _, ok := unitAt(s, unit)
	if !ok {
		return false
	}
	for _, c := range g.Centers {
		if cur.Distance(c) <= AreaRadius {
			return true
		}
	}
	return false
}

func (ReachArea) Priority() float64 { return 30 }

// SiegeRange is the distance from which a unit may begin a siege.
const SiegeRange = 2

// SiegeCastle approaches a castle, puts it under siege, then drives its HP to 0.
type SiegeCastle struct {
	CastleID string
}

func (g SiegeCastle) String() string { return "SiegeCastle:" + g.CastleID }

func (g SiegeCastle) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	cv, ok := s.Get(CastleKey(g.CastleID, "At"))
	if !ok {
		return action.Goal{}, false
	}
	castle, ok := cv.Location()
	if !ok {
		return action.Goal{}, false
	}
	cur, _, ok := unitAt(s, unit)
	if !ok {
		return action.Goal{}, false
	}
	siegeKey := CastleKey(g.CastleID, "UnderSiege")
	if s.Satisfies(siegeKey, facts.Bool(true)) {
		hpKey := CastleKey(g.CastleID, "HP")
		if hp, ok := intFact(s, hpKey); ok && hp > 0 {
			return action.NewGoal(hpKey, facts.Int(0)), true
		}
		return action.Goal{}, false
	}
	if cur.Distance(castle) <= SiegeRange {
		return action.NewGoal(siegeKey, facts.Bool(true)), true
	}
	return reachGoal(s, unit, castle)
}

func (g SiegeCastle) Achieved(s *facts.State, _ string) bool {
	if hp, ok := intFact(s, CastleKey(g.CastleID, "HP")); ok && hp <= 0 {
		return true
	}
	return s.Satisfies(CastleKey(g.CastleID, "Captured"), facts.Bool(true))
}

func (SiegeCastle) Priority() float64 { return 55 }

type ReachPosition struct {
	Target facts.HexCoord
	Reason string
}

func (g ReachPosition) String() string { return "ReachPosition:" + g.Target.String() + ":" + g.Reason }

func (g ReachPosition) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	return reachGoal(s, unit, g.Target)
}

func (g ReachPosition) Achieved(s *facts.State, unit string) bool {
	cur, _, ok := unitAt(s, unit)
	return ok && cur == g.Target
}

func (ReachPosition) Priority() float64 { return 30 }

// EliminateTarget closes to attack range, then asks for the target dead.
type EliminateTarget struct {
	TargetID string
}

func (g EliminateTarget) String() string { return "EliminateTarget:" + g.TargetID }

func (g EliminateTarget) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	rng, ok := intFact(s, UnitKey(unit, "AttackRange"))
	if !ok {
		return action.Goal{}, false
	}
	tv, ok := s.Get(UnitKey(g.TargetID, "At"))
	if !ok {
		return action.Goal{}, false
	}
	target, ok := tv.Location()
	if !ok {
		return action.Goal{}, false
	}
	cur, _, ok := unitAt(s, unit)
	if !ok {
		return action.Goal{}, false
	}
	if cur.Distance(target) <= rng {
		return action.NewGoal(UnitKey(g.TargetID, "Alive"), facts.Bool(false)), true
	}
	return reachGoal(s, unit, target)
}

// Achieved treats a target with no Alive fact as already gone.
func (g EliminateTarget) Achieved(s *facts.State, _ string) bool {
	v, ok := s.Get(UnitKey(g.TargetID, "Alive"))
	if !ok {
		return true
	}
	alive, isBool := v.AsBool()
	return isBool && !alive
}

func (EliminateTarget) Priority() float64 { return 60 }

// StayInFormation holds position while at least one ally is nearby.
type StayInFormation struct {
	MaxDistance int
}

func (g StayInFormation) String() string { return "StayInFormation:" + strconv.Itoa(g.MaxDistance) }

func (g StayInFormation) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	if n, ok := intFact(s, UnitKey(unit, "NearbyAllies")); ok && n >= 1 {
		return holdGoal(s, unit)
	}
	return action.Goal{}, false
}

func (g StayInFormation) Achieved(s *facts.State, unit string) bool {
	n, ok := intFact(s, UnitKey(unit, "NearbyAllies"))
	return ok && n >= 1
}

func (StayInFormation) Priority() float64 { return 20 }

// ControlZone moves into the zone, then clears it of enemies.
type ControlZone struct {
	Center facts.HexCoord
	Radius int
}

func (g ControlZone) String() string {
	return "ControlZone:" + g.Center.String() + ":" + strconv.Itoa(g.Radius)
}

func (g ControlZone) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	cur, _, ok := unitAt(s, unit)
	if !ok {
		return action.Goal{}, false
	}
	if cur.Distance(g.Center) > g.Radius {
		return reachGoal(s, unit, g.Center)
	}
	if goal, ok := engageGoal(s, unit); ok {
		return goal, true
	}
	return holdGoal(s, unit)
}

func (g ControlZone) Achieved(s *facts.State, unit string) bool {
	cur, _, ok := unitAt(s, unit)
	if !ok || cur.Distance(g.Center) > g.Radius {
		return false
	}
	n, ok := intFact(s, UnitKey(unit, "NearbyEnemies"))
	return !ok || n == 0
}

func (ControlZone) Priority() float64 { return 40 }

type ProtectAlly struct {
	AllyID      string
	MaxDistance int
}

func (g ProtectAlly) String() string {
	return "ProtectAlly:" + g.AllyID + ":" + strconv.Itoa(g.MaxDistance)
}

func (g ProtectAlly) Decompose(s *facts.State, unit string) (action.Goal, bool) {
	av, ok := s.Get(UnitKey(g.AllyID, "At"))
	if !ok {
		return action.Goal{}, false
	}
	ally, ok := av.Location()
	if !ok {
		return action.Goal{}, false
	}
	cur, _, ok := unitAt(s, unit)
	if !ok || cur.Distance(ally) <= g.MaxDistance {
		return action.Goal{}, false
	}
	return reachGoal(s, unit, ally)
}

func (g ProtectAlly) Achieved(s *facts.State, unit string) bool {
	av, ok := s.Get(UnitKey(g.AllyID, "At"))
	if !ok {
		return false
	}
	ally, ok := av.Location()
	if !ok {
		return false
	}
	cur, _, ok := unitAt(s, unit)
	return ok && cur.Distance(ally) <= g.MaxDistance
}

func (ProtectAlly) Priority() float64 { return 45 }

// Custom wraps a fixed planner goal.
type Custom struct {
	Description string
	Goal        action.Goal
}

func (g Custom) String() string { return "Custom:" + g.Description }

func (g Custom) Decompose(*facts.State, string) (action.Goal, bool) { return g.Goal, true }

func (g Custom) Achieved(s *facts.State, _ string) bool { return g.Goal.SatisfiedBy(s) }

func (Custom) Priority() float64 { return 10 }

func joinHexes(hs []facts.HexCoord) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = h.String()
	}
	return strings.Join(parts, ";")
}
