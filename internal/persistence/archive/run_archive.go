package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hexplan.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID          string `json:"run_id"`
	ScenarioID     string `json:"scenario_id"`
	EndTick        uint64 `json:"end_tick"`
	Digest         string `json:"digest"`
	ScenarioDigest string `json:"scenario_digest,omitempty"`
	TuningDigest   string `json:"tuning_digest,omitempty"`
	Done           bool   `json:"done"`
	Snapshot       string `json:"snapshot"`
	CreatedAt      string `json:"created_at"`
}

// ArchiveRunSnapshot copies a run's final snapshot into
// `dataDir/archives/run_<id>/` next to a meta.json describing it.
func ArchiveRunSnapshot(dataDir, snapshotPath string, snap snapshot.SnapshotV1, done bool) (string, error) {
	runID := snap.Header.RunID
	if runID == "" {
		return "", fmt.Errorf("snapshot has no run id")
	}

	archiveDir := filepath.Join(dataDir, "archives", "run_"+runID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := RunArchiveMeta{
		RunID:          runID,
		ScenarioID:     snap.Header.ScenarioID,
		EndTick:        snap.Header.Tick,
		Digest:         snap.Header.Digest,
		ScenarioDigest: snap.ScenarioDigest,
		TuningDigest:   snap.TuningDigest,
		Done:           done,
		Snapshot:       filepath.Base(dst),
		CreatedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// ReadMeta loads meta.json from a run archive directory.
func ReadMeta(archiveDir string) (RunArchiveMeta, error) {
	var m RunArchiveMeta
	b, err := os.ReadFile(filepath.Join(archiveDir, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
