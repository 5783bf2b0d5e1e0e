package planner

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
	"hexplan.ai/internal/goap/grounding"
)

func boxWorld() (*facts.State, []action.Template, action.Goal) {
	start := facts.FromFacts(
		facts.F("AgentAt", facts.Str("A")),
		facts.F("BoxAt", facts.Str("B")),
	)
	templates := []action.Template{
		{
			Name:          "Move",
			Preconditions: []facts.Fact{facts.F("AgentAt", facts.Str("A"))},
			Effects:       []facts.Fact{facts.F("AgentAt", facts.Str("B"))},
			Cost:          1,
		},
		{
			Name: "Pickup",
			Preconditions: []facts.Fact{
				facts.F("AgentAt", facts.Str("B")),
				facts.F("BoxAt", facts.Str("B")),
			},
			Effects: []facts.Fact{facts.F("Carried", facts.Bool(true))},
			Cost:    1,
		},
	}
	return start, templates, action.NewGoal("Carried", facts.Bool(true))
}

func TestPlan_MoveThenPickup(t *testing.T) {
	start, templates, goal := boxWorld()

	p, ok := PlanTemplates(start, templates, goal, 100)
	if !ok {
		t.Fatalf("expected a plan")
	}
	if diff := cmp.Diff(Plan{0, 1}, p); diff != "" {
		t.Fatalf("plan (-want +got):\n%s", diff)
	}
	insts := action.GroundAll(templates, "")
	if c := Cost(p, insts); c != 2 {
		t.Fatalf("cost=%v want 2", c)
	}
	if names := Names(p, insts); names[0] != "Move" || names[1] != "Pickup" {
		t.Fatalf("names=%v", names)
	}
}

func TestPlan_GoalAlreadySatisfied(t *testing.T) {
	start, templates, _ := boxWorld()
	goal := action.NewGoal("BoxAt", facts.Str("B"))

	r := Search(start, action.GroundAll(templates, ""), goal, 10)
	if !r.Found {
		t.Fatalf("satisfied start must be found")
	}
	if r.Plan == nil || len(r.Plan) != 0 || r.Cost != 0 {
		t.Fatalf("want empty non-nil plan with zero cost, got %#v cost=%v", r.Plan, r.Cost)
	}
}

func TestPlan_BudgetExhaustion(t *testing.T) {
	start, templates, goal := boxWorld()

	if _, ok := PlanTemplates(start, templates, goal, 1); ok {
		t.Fatalf("one node cannot reach a two-step goal")
	}
	r := Search(start, action.GroundAll(templates, ""), goal, 2)
	if r.Found || r.Expanded != 2 {
		t.Fatalf("budget 2: found=%v expanded=%d", r.Found, r.Expanded)
	}
	if _, ok := PlanTemplates(start, templates, goal, 3); !ok {
		t.Fatalf("budget 3 should suffice")
	}
}

func TestPlan_UnsolvableExhaustsOpenSet(t *testing.T) {
	start, templates, _ := boxWorld()
	r := Search(start, action.GroundAll(templates, ""), action.NewGoal("Flying", facts.Bool(true)), 1000)
	if r.Found {
		t.Fatalf("unexpected plan %v", r.Plan)
	}
	// start, after Move, after Move+Pickup.
	if r.Expanded != 3 {
		t.Fatalf("expanded=%d want 3", r.Expanded)
	}
}

func TestPlan_DoesNotMutateStart(t *testing.T) {
	start, templates, goal := boxWorld()
	before := start.CanonicalKey()
	_, _ = PlanTemplates(start, templates, goal, 100)
	if start.CanonicalKey() != before {
		t.Fatalf("planner mutated caller state: %s", start)
	}
}

func TestPlan_PrefersCheaperLongerPath(t *testing.T) {
	start := facts.FromFacts(facts.F("At", facts.Str("A")))
	actions := []action.Instance{
		{Name: "Teleport", Preconditions: []facts.Fact{facts.F("At", facts.Str("A"))}, Effects: []facts.Fact{facts.F("At", facts.Str("C"))}, Cost: 10},
		{Name: "AtoB", Preconditions: []facts.Fact{facts.F("At", facts.Str("A"))}, Effects: []facts.Fact{facts.F("At", facts.Str("B"))}, Cost: 1},
		{Name: "BtoC", Preconditions: []facts.Fact{facts.F("At", facts.Str("B"))}, Effects: []facts.Fact{facts.F("At", facts.Str("C"))}, Cost: 2},
	}
	r := Search(start, actions, action.NewGoal("At", facts.Str("C")), 100)
	if !r.Found || r.Cost != 3 {
		t.Fatalf("found=%v cost=%v plan=%v", r.Found, r.Cost, r.Plan)
	}
	if diff := cmp.Diff(Plan{1, 2}, r.Plan); diff != "" {
		t.Fatalf("plan (-want +got):\n%s", diff)
	}
}

func TestPlan_ZeroPreconditionAction(t *testing.T) {
	actions := []action.Instance{
		{Name: "Shout", Effects: []facts.Fact{facts.F("Heard", facts.Bool(true))}, Cost: 0.5},
	}
	p, ok := PlanInstances(facts.NewState(), actions, action.NewGoal("Heard", facts.Bool(true)), 10)
	if !ok || len(p) != 1 {
		t.Fatalf("plan=%v ok=%v", p, ok)
	}
}

func TestPlan_HexMovesWithinBudget(t *testing.T) {
	start := facts.FromFacts(facts.F("At", facts.HexValue(facts.Hex(0, 0))))
	templates := []action.Template{
		grounding.MoveTemplate(facts.Hex(0, 0), facts.Hex(1, 0), 1),
		grounding.MoveTemplate(facts.Hex(1, 0), facts.Hex(2, 0), 1),
		grounding.MoveTemplate(facts.Hex(0, 0), facts.Hex(2, 0), 2.5),
	}
	goal := action.NewGoal("At", facts.HexValue(facts.Hex(2, 0)))

	p, ok := PlanTemplates(start, templates, goal, 50)
	if !ok {
		t.Fatalf("expected plan")
	}
	insts := action.GroundAll(templates, "")
	end := Apply(start, p, insts)
	if !goal.SatisfiedBy(end) {
		t.Fatalf("plan does not reach goal: %s", end)
	}
	if Cost(p, insts) > 2 {
		t.Fatalf("cost=%v, expected the two cheap steps", Cost(p, insts))
	}
	if _, ok := PlanTemplates(start, templates, goal, 1); ok {
		t.Fatalf("budget 1 must fail")
	}
}

func TestPlan_Deterministic(t *testing.T) {
	start := facts.FromFacts(facts.F("At", facts.HexValue(facts.Hex(0, 0))))
	moves := grounding.Moves{Cost: 1, Radius: 3}.Ground(start, "")
	goal := action.NewGoal("At", facts.HexValue(facts.Hex(2, -1)))

	first := Search(start, moves, goal, 5000)
	if !first.Found || first.Cost != 2 {
		t.Fatalf("found=%v cost=%v", first.Found, first.Cost)
	}
	for i := 0; i < 5; i++ {
		again := Search(start, moves, goal, 5000)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

// Random counter worlds: every returned plan must reach the goal, and its
// cost must match an exhaustive breadth-first optimum.
func TestPlan_SoundAndOptimalOnRandomWorlds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 40; trial++ {
		var actions []action.Instance
		for i := 0; i < 6; i++ {
			from := rng.Intn(5)
			to := rng.Intn(5)
			actions = append(actions, action.Instance{
				Name:          fmt.Sprintf("a%d", i),
				Preconditions: []facts.Fact{facts.F("N", facts.Int(from))},
				Effects:       []facts.Fact{facts.F("N", facts.Int(to))},
				Cost:          float64(1 + rng.Intn(4)),
			})
		}
		start := facts.FromFacts(facts.F("N", facts.Int(0)))
		target := 1 + rng.Intn(4)
		goal := action.NewGoal("N", facts.Int(target))

		r := Search(start, actions, goal, 1000)
		want, reachable := bruteForce(actions, target)
		if r.Found != reachable {
			t.Fatalf("trial %d: found=%v reachable=%v", trial, r.Found, reachable)
		}
		if !r.Found {
			continue
		}
		if !goal.SatisfiedBy(Apply(start, r.Plan, actions)) {
			t.Fatalf("trial %d: unsound plan %v", trial, r.Plan)
		}
		if r.Cost != want || Cost(r.Plan, actions) != want {
			t.Fatalf("trial %d: cost=%v want %v", trial, r.Cost, want)
		}
	}
}

// bruteForce relaxes edge costs over the 5 counter values (Bellman-Ford).
func bruteForce(actions []action.Instance, target int) (float64, bool) {
	const inf = 1e18
	dist := [5]float64{0, inf, inf, inf, inf}
	for round := 0; round < 5; round++ {
		for _, a := range actions {
			from, _ := a.Preconditions[0].Value.AsInt()
			to, _ := a.Effects[0].Value.AsInt()
			if dist[from]+a.Cost < dist[to] {
				dist[to] = dist[from] + a.Cost
			}
		}
	}
	return dist[target], dist[target] < inf
}

func TestSearch_DeduplicatesStates(t *testing.T) {
	// Two toggles that cycle A<->B would loop forever without dedup.
	actions := []action.Instance{
		{Name: "toB", Preconditions: []facts.Fact{facts.F("S", facts.Str("A"))}, Effects: []facts.Fact{facts.F("S", facts.Str("B"))}, Cost: 1},
		{Name: "toA", Preconditions: []facts.Fact{facts.F("S", facts.Str("B"))}, Effects: []facts.Fact{facts.F("S", facts.Str("A"))}, Cost: 1},
	}
	r := Search(facts.FromFacts(facts.F("S", facts.Str("A"))), actions, action.NewGoal("S", facts.Str("C")), 1_000_000)
	if r.Found || r.Expanded != 2 {
		t.Fatalf("found=%v expanded=%d want 2 expansions", r.Found, r.Expanded)
	}
}
