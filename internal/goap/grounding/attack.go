package grounding

import (
	"fmt"
	"strings"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

// Default fact names read by Attack.
const (
	EnemyAtKey     = "EnemyAt"
	EnemyAliveKey  = "EnemyAlive"
	EnemyHealthKey = "EnemyHealth"
	AtKey          = "At"
)

// Attack grounds one attack instance per live enemy location fact.
//
// Enemy identity comes from the key suffix: "EnemyAt:<id>" pairs with
// "EnemyAlive:<id>" and "EnemyHealth:<id>"; a bare "EnemyAt" pairs with the
// bare alive/health names.
type Attack struct {
	Name   string
	Damage int
	Cost   float64

	// Optional overrides of the default fact names.
	EnemyAtKey     string
	EnemyAliveKey  string
	EnemyHealthKey string
	AtKey          string
}

func (a Attack) keys() (enemyAt, alive, health, at string) {
	enemyAt, alive, health, at = EnemyAtKey, EnemyAliveKey, EnemyHealthKey, AtKey
	if a.EnemyAtKey != "" {
		enemyAt = a.EnemyAtKey
	}
	if a.EnemyAliveKey != "" {
		alive = a.EnemyAliveKey
	}
	if a.EnemyHealthKey != "" {
		health = a.EnemyHealthKey
	}
	if a.AtKey != "" {
		at = a.AtKey
	}
	return
}

// Ground scans s in key order and never mutates it.
func (a Attack) Ground(s *facts.State, agent string) []action.Instance {
	enemyAtKey, aliveBase, healthBase, atKey := a.keys()
	// Match the unit's position encoding (hex or "q,r" string) so moves
	// grounded from the same fact can satisfy the attack.
	encode := facts.HexValue
	if cur, ok := s.Get(atKey); ok && cur.Kind() == facts.KindStr {
		encode = func(h facts.HexCoord) facts.Value { return facts.Str(h.String()) }
	}

	var out []action.Instance
	s.Range(func(key string, v facts.Value) bool {
		id, scoped, ok := matchScoped(key, enemyAtKey)
		if !ok {
			return true
		}
		loc, ok := v.Location()
		if !ok {
			return true
		}

		aliveKey, healthKey := aliveBase, healthBase
		if scoped {
			aliveKey = aliveBase + ":" + id
			healthKey = healthBase + ":" + id
		}

		pre := []facts.Fact{facts.F(atKey, encode(loc))}
		aliveVal, hasAlive := s.Get(aliveKey)
		alive, aliveIsBool := aliveVal.AsBool()
		if hasAlive && aliveIsBool {
			if !alive {
				return true
			}
			pre = append(pre, facts.F(aliveKey, facts.Bool(true)))
		}

		var eff []facts.Fact
		if hv, ok := s.Get(healthKey); ok {
			if h, isInt := hv.AsInt(); isInt {
				next := h - a.Damage
				if next < 0 {
					next = 0
				}
				eff = append(eff, facts.F(healthKey, facts.Int(next)))
				if next <= 0 {
					eff = append(eff, facts.F(aliveKey, facts.Bool(false)))
				}
			}
		}
		if eff == nil && (hasAlive || scoped) {
			eff = append(eff, facts.F(aliveKey, facts.Bool(false)))
		}

		out = append(out, action.Instance{
			Name:          a.instanceName(id, scoped, loc),
			Preconditions: pre,
			Effects:       eff,
			Cost:          a.Cost,
			Agent:         agent,
		})
		return true
	})
	return out
}

func (a Attack) instanceName(id string, scoped bool, loc facts.HexCoord) string {
	base := a.Name
	if base == "" {
		base = "Attack"
	}
	if scoped {
		return fmt.Sprintf("%s:%s@(%d,%d)", base, id, loc.Q, loc.R)
	}
	return fmt.Sprintf("%s@(%d,%d)", base, loc.Q, loc.R)
}

// matchScoped reports whether key is base or "base:<id>".
func matchScoped(key, base string) (id string, scoped bool, ok bool) {
	if key == base {
		return "", false, true
	}
	if rest, found := strings.CutPrefix(key, base+":"); found {
		return rest, true, true
	}
	return "", false, false
}
