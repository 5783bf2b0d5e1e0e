package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

func claimWorld() (*facts.State, []action.Instance) {
	start := facts.FromFacts(facts.F("ItemClaimed", facts.Bool(false)))
	actions := []action.Instance{
		{
			Name:          "Claim",
			Preconditions: []facts.Fact{facts.F("ItemClaimed", facts.Bool(false))},
			Effects:       []facts.Fact{facts.F("ItemClaimed", facts.Bool(true))},
			Cost:          1,
		},
		{
			Name:          "Wait",
			Preconditions: []facts.Fact{facts.F("ItemClaimed", facts.Bool(true))},
			Effects:       []facts.Fact{facts.F("Waited", facts.Bool(true))},
			Cost:          1,
		},
	}
	return start, actions
}

func TestPlanTeam_SequentialCommitment(t *testing.T) {
	start, actions := claimWorld()
	goals := map[string][]action.Goal{
		"first":  {action.NewGoal("ItemClaimed", facts.Bool(true))},
		"second": {action.NewGoal("Waited", facts.Bool(true))},
	}

	res := PlanTeam(start, actions, goals, []string{"first", "second"}, 100)

	first := res.Agents["first"]
	if !first.Found() || len(first.Plan) != 1 || first.Global()[0] != 0 {
		t.Fatalf("first: %+v", first)
	}
	// The claim is already committed, so the second agent only waits.
	second := res.Agents["second"]
	if !second.Found() || len(second.Plan) != 1 || second.Global()[0] != 1 {
		t.Fatalf("second: %+v", second)
	}
	if v, _ := res.Final.Get("Waited"); v != facts.Bool(true) {
		t.Fatalf("final state missing committed effects: %s", res.Final)
	}
	if v, _ := start.Get("ItemClaimed"); v != facts.Bool(false) {
		t.Fatalf("caller state mutated")
	}
}

func TestPlanTeam_ClaimedResourceBlocksLaterAgent(t *testing.T) {
	start, actions := claimWorld()
	goals := map[string][]action.Goal{
		"a": {action.NewGoal("ItemClaimed", facts.Bool(true))},
		// b also wants to perform the claim itself, which is no longer applicable.
		"b": {action.NewGoal("ItemClaimed", facts.Bool(false))},
	}
	res := PlanTeam(start, actions, goals, []string{"a", "b"}, 100)
	if !res.Agents["a"].Found() {
		t.Fatalf("a should plan")
	}
	b := res.Agents["b"]
	if b.Found() || len(b.Plan) != 0 || b.Plan == nil {
		t.Fatalf("b should get an empty plan: %+v", b)
	}
}

func TestPlanTeam_TaggedActionsVisibleOnlyToOwner(t *testing.T) {
	start := facts.NewState()
	actions := []action.Instance{
		{Name: "Shared", Effects: []facts.Fact{facts.F("Shared", facts.Bool(true))}, Cost: 1},
		{Name: "RedOnly", Agent: "red", Effects: []facts.Fact{facts.F("Flag", facts.Str("red"))}, Cost: 1},
		{Name: "BlueOnly", Agent: "blue", Effects: []facts.Fact{facts.F("Flag", facts.Str("blue"))}, Cost: 1},
	}
	goals := map[string][]action.Goal{
		"red":  {action.NewGoal("Flag", facts.Str("blue")), action.NewGoal("Flag", facts.Str("red"))},
		"blue": {action.NewGoal("Shared", facts.Bool(true))},
	}
	res := PlanTeam(start, actions, goals, []string{"red", "blue"}, 100)

	red := res.Agents["red"]
	if diff := cmp.Diff([]int{0, 1}, red.Visible); diff != "" {
		t.Fatalf("red visibility (-want +got):\n%s", diff)
	}
	// The first goal needs blue's action, so red falls through to its second.
	if red.GoalIndex != 1 || red.Goal.Value != facts.Str("red") {
		t.Fatalf("red goal=%d %s", red.GoalIndex, red.Goal)
	}
	if diff := cmp.Diff([]int{1}, red.Global()); diff != "" {
		t.Fatalf("red global plan (-want +got):\n%s", diff)
	}

	blue := res.Agents["blue"]
	if diff := cmp.Diff([]int{0, 2}, blue.Visible); diff != "" {
		t.Fatalf("blue visibility (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, blue.Global()); diff != "" {
		t.Fatalf("blue global plan (-want +got):\n%s", diff)
	}
}

func TestPlanForTeam_MissingGoalsAndOrder(t *testing.T) {
	start, actions := claimWorld()
	goals := map[string][]action.Goal{
		"ghost": {action.NewGoal("ItemClaimed", facts.Bool(true))},
	}
	plans := PlanForTeam(start, actions, goals, []string{"idle"}, 100)
	if len(plans) != 1 {
		t.Fatalf("plans=%v", plans)
	}
	if p, ok := plans["idle"]; !ok || len(p) != 0 {
		t.Fatalf("agent without goals should get an empty plan, got %v", p)
	}
	if _, ok := plans["ghost"]; ok {
		t.Fatalf("agents outside the order must not be planned")
	}
}

func TestPlanTeam_BudgetIsPerAgentPerGoal(t *testing.T) {
	start, actions := claimWorld()
	goals := map[string][]action.Goal{
		"a": {action.NewGoal("Waited", facts.Bool(true))},
	}
	// Claim + Wait needs three pops.
	if res := PlanTeam(start, actions, goals, []string{"a"}, 2); res.Agents["a"].Found() {
		t.Fatalf("budget 2 should fail")
	}
	if res := PlanTeam(start, actions, goals, []string{"a"}, 3); !res.Agents["a"].Found() {
		t.Fatalf("budget 3 should succeed")
	}
}
