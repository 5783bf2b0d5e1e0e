package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	persistlog "hexplan.ai/internal/persistence/log"
	"hexplan.ai/internal/persistence/snapshot"
	"hexplan.ai/internal/sim/runner"
)

const skirmish = "../../scenarios/skirmish.yaml"

func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--tuning", "../../configs/tuning.yaml", "--data", dataDir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := run(t, t.TempDir(), "validate", skirmish)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "id=skirmish agents=2") {
		t.Fatalf("out=%q", out)
	}

	out, err = run(t, t.TempDir(), "validate", skirmish, "missing.yaml")
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("err=%v out=%q", err, out)
	}
}

func TestPlanJSON(t *testing.T) {
	out, err := run(t, t.TempDir(), "plan", "--json", skirmish)
	if err != nil {
		t.Fatalf("plan: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q", lines)
	}
	var rec runner.PlanRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Agent != "u1" || !rec.Found || len(rec.Actions) == 0 {
		t.Fatalf("u1=%+v", rec)
	}
	if last := rec.Actions[len(rec.Actions)-1]; !strings.HasPrefix(last, "Attack:orc@") {
		t.Fatalf("u1 should finish with the attack: %v", rec.Actions)
	}
}

func TestSimulatePersistsRun(t *testing.T) {
	dataDir := t.TempDir()
	out, err := run(t, dataDir, "simulate", skirmish)
	if err != nil {
		t.Fatalf("simulate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "done=true") || !strings.Contains(out, "archived ") {
		t.Fatalf("out=%q", out)
	}

	out, err = run(t, dataDir, "db", "runs")
	if err != nil {
		t.Fatalf("db runs: %v", err)
	}
	var row struct {
		RunID      string `json:"run_id"`
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &row); err != nil || row.ScenarioID != "skirmish" {
		t.Fatalf("runs=%q err=%v", out, err)
	}

	out, err = run(t, dataDir, "db", "events", "--run", row.RunID, "--limit", "1000")
	if err != nil || !strings.Contains(out, `"kind":"complete"`) {
		t.Fatalf("events err=%v out=%q", err, out)
	}

	out, err = run(t, dataDir, "db", "snapshots", "--run", row.RunID)
	if err != nil || strings.Count(out, "\n") != 2 {
		t.Fatalf("snapshots err=%v out=%q", err, out)
	}
	var final struct {
		Tick   int64  `json:"tick"`
		Digest string `json:"digest"`
	}
	if err := json.Unmarshal([]byte(strings.Split(strings.TrimSpace(out), "\n")[1]), &final); err != nil || final.Tick == 0 {
		t.Fatalf("final snapshot row=%q err=%v", out, err)
	}

	start, err := snapshot.ReadSnapshot(filepath.Join(dataDir, "snapshots", row.RunID, "0.snap.zst"))
	if err != nil || start.Header.Tick != 0 || start.Header.RunID != row.RunID {
		t.Fatalf("start header=%+v err=%v", start.Header, err)
	}

	// The event log alone carries the start world to the final one.
	files, err := persistlog.EventFiles(filepath.Join(dataDir, "events"))
	if err != nil || len(files) == 0 {
		t.Fatalf("event files=%v err=%v", files, err)
	}
	events, err := persistlog.ReadEvents(files...)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	world := start.World()
	if n := runner.Replay(world, events, row.RunID, 0); n == 0 {
		t.Fatalf("no complete events replayed")
	}
	if world.Digest() != final.Digest {
		t.Fatalf("replayed digest=%s final=%s", world.Digest(), final.Digest)
	}
}

func TestSnapshotCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.snap.zst")
	if out, err := run(t, t.TempDir(), "snapshot", skirmish, path); err != nil {
		t.Fatalf("snapshot: %v\n%s", err, out)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Header.ScenarioID != "skirmish" || snap.ScenarioDigest == "" || len(snap.Facts) != 5 {
		t.Fatalf("snap header=%+v facts=%d", snap.Header, len(snap.Facts))
	}
}

func TestDBUnknownQuery(t *testing.T) {
	_, err := run(t, t.TempDir(), "db", "--db", filepath.Join(t.TempDir(), "x.sqlite"), "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown query") {
		t.Fatalf("err=%v", err)
	}
}
