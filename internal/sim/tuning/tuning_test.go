package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Digest() != Defaults().Digest() {
		t.Fatalf("configs/tuning.yaml drifted from Defaults(): %+v", got)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("max_nodes: 42\nmove:\n  radius: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.MaxNodes != 42 || got.Move.Radius != 1 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.TickRateHz != 10 || got.Attack.Damage != 5 {
		t.Fatalf("defaults lost: %+v", got)
	}
	if got.Digest() == Defaults().Digest() {
		t.Fatalf("digest should change with content")
	}
}

func TestLoad_EmptyPathAndErrors(t *testing.T) {
	if got, err := Load(""); err != nil || got.MaxNodesCap != Defaults().MaxNodesCap {
		t.Fatalf("empty path: %+v %v", got, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("tick_rate_hz: 0\n"), 0o644)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "tick_rate_hz") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClampAndDurations(t *testing.T) {
	tu := Defaults()
	if tu.Clamp(0) != tu.MaxNodes || tu.Clamp(7) != 7 || tu.Clamp(1<<30) != tu.MaxNodesCap {
		t.Fatalf("clamp wrong")
	}
	tu.Durations = map[string]float64{"Move": 0.5, "Move:fast": 0.1, "Wait": 0}
	if d, ok := tu.DurationFor("Move:fast:(0,0)->(1,0)"); !ok || d != 0.1 {
		t.Fatalf("longest prefix should win: %v %v", d, ok)
	}
	if d, ok := tu.DurationFor("Move:(0,0)->(1,0)"); !ok || d != 0.5 {
		t.Fatalf("move: %v %v", d, ok)
	}
	if _, ok := tu.DurationFor("Wait"); ok {
		t.Fatalf("zero duration is instant")
	}
	if _, ok := tu.DurationFor("Pickup"); ok {
		t.Fatalf("unmatched is instant")
	}
	if tu.TickSeconds() != 0.1 {
		t.Fatalf("tick seconds=%v", tu.TickSeconds())
	}
}

func TestLoad_DurationsReplaceDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("durations:\n  Strike: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Durations) != 1 || got.Durations["Strike"] != 2 {
		t.Fatalf("durations=%v", got.Durations)
	}
	if d, timed := got.DurationFor("Move:(0,0)->(1,0)"); timed {
		t.Fatalf("Move should be instant, got %v", d)
	}
	if len(Defaults().Durations) != 2 {
		t.Fatalf("defaults mutated: %v", Defaults().Durations)
	}

	// Without a durations block the defaults stay.
	if err := os.WriteFile(path, []byte("max_nodes: 7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err = Load(path)
	if err != nil || got.Durations["Move"] != 0.5 {
		t.Fatalf("durations=%v err=%v", got.Durations, err)
	}
}
