package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hexplan.ai/internal/goap/facts"
)

func TestWriteReadSnapshot(t *testing.T) {
	world := facts.FromFacts(
		facts.F("Unit:u1:At", facts.HexValue(facts.Hex(2, -1))),
		facts.F("EnemyAlive:orc", facts.Bool(false)),
		facts.F("EnemyHealth:orc", facts.Int(0)),
		facts.F("Name", facts.Str("skirmish")),
	)
	snap := New("skirmish", "run-1", 42, world)
	snap.TuningDigest = "abc"

	path := filepath.Join(t.TempDir(), "snapshots", "42.snap.zst")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Tick != 42 || h.ScenarioID != "skirmish" || h.Digest != world.Digest() {
		t.Fatalf("header=%+v", h)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !got.World().Equal(world) || got.TuningDigest != "abc" || got.Header.RunID != "run-1" {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
}

func TestReadSnapshot_DetectsTampering(t *testing.T) {
	world := facts.FromFacts(facts.F("A", facts.Int(1)))
	snap := New("s", "", 0, world)
	snap.Facts = []facts.Fact{facts.F("A", facts.Int(2))}

	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("err=%v", err)
	}
}

func TestReadSnapshot_NotZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("{}\n{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("plain text should not decode")
	}
}
