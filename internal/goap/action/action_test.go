package action

import (
	"encoding/json"
	"testing"

	"hexplan.ai/internal/goap/facts"
)

func TestTemplateAndInstanceApplicability(t *testing.T) {
	start := facts.FromFacts(facts.F("At", facts.Str("A")))
	tmpl := Template{
		Name:          "Move",
		Preconditions: []facts.Fact{facts.F("At", facts.Str("A"))},
		Effects:       []facts.Fact{facts.F("At", facts.Str("B"))},
		Cost:          1,
	}
	if !tmpl.IsApplicable(start) {
		t.Fatalf("template should be applicable")
	}

	inst := Ground(tmpl, "agent42")
	if !inst.IsApplicable(start) {
		t.Fatalf("instance should be applicable")
	}
	if inst.Agent != "agent42" || inst.Name != "Move" || inst.Cost != 1 {
		t.Fatalf("ground copied wrong fields: %+v", inst)
	}

	moved := facts.FromFacts(facts.F("At", facts.Str("B")))
	if inst.IsApplicable(moved) {
		t.Fatalf("At=B must not satisfy At=A")
	}
	if inst.IsApplicable(facts.NewState()) {
		t.Fatalf("absent fact must not satisfy precondition")
	}
}

func TestNoPreconditionsAlwaysApplicable(t *testing.T) {
	a := Instance{Name: "Wait"}
	if !a.IsApplicable(facts.NewState()) {
		t.Fatalf("empty preconditions are always applicable")
	}
}

func TestGroundCopiesSlices(t *testing.T) {
	tmpl := Template{
		Name:    "Set",
		Effects: []facts.Fact{facts.F("X", facts.Int(1))},
	}
	inst := Ground(tmpl, "")
	inst.Effects[0] = facts.F("X", facts.Int(9))
	if tmpl.Effects[0].Value != facts.Int(1) {
		t.Fatalf("instance shares effect storage with template")
	}
}

func TestVisibleTo(t *testing.T) {
	if !(Instance{}).VisibleTo("a") {
		t.Fatalf("untagged instance is visible to everyone")
	}
	tagged := Instance{Agent: "a"}
	if !tagged.VisibleTo("a") || tagged.VisibleTo("b") {
		t.Fatalf("tagged instance visibility wrong")
	}
}

func TestGoal(t *testing.T) {
	g := NewGoal("Carried", facts.Bool(true))
	if g.SatisfiedBy(facts.NewState()) {
		t.Fatalf("absent key is not a goal state")
	}
	if !g.SatisfiedBy(facts.FromFacts(facts.F("Carried", facts.Bool(true)))) {
		t.Fatalf("expected goal satisfied")
	}
	if g.SatisfiedBy(facts.FromFacts(facts.F("Carried", facts.Int(1)))) {
		t.Fatalf("different tag must not satisfy")
	}
}

func TestInstanceJSON(t *testing.T) {
	in := Instance{
		Name:          "Pickup",
		Preconditions: []facts.Fact{facts.F("AgentAt", facts.Str("B"))},
		Effects:       []facts.Fact{facts.F("Carried", facts.Bool(true))},
		Cost:          1.5,
		Agent:         "a1",
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"Pickup","pre":[{"key":"AgentAt","str":"B"}],"eff":[{"key":"Carried","bool":true}],"cost":1.5,"agent":"a1"}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
	var out Instance
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Name != in.Name || out.Agent != in.Agent || out.Effects[0] != in.Effects[0] {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	var g Goal
	if err := json.Unmarshal([]byte(`{"key":"Carried","value":{"bool":true}}`), &g); err != nil {
		t.Fatalf("goal unmarshal: %v", err)
	}
	if g.Key != "Carried" || g.Value != facts.Bool(true) {
		t.Fatalf("goal = %+v", g)
	}
}
