package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"hexplan.ai/internal/goap/facts"
)

const Version = 1

type Header struct {
	Version    int    `json:"version"`
	ScenarioID string `json:"scenario_id"`
	RunID      string `json:"run_id,omitempty"`
	Tick       uint64 `json:"tick"`
	// Digest is facts.State.Digest of the stored world.
	Digest string `json:"digest"`
}

type SnapshotV1 struct {
	Header Header       `json:"header"`
	Facts  []facts.Fact `json:"facts"`

	ScenarioDigest string `json:"scenario_digest,omitempty"`
	TuningDigest   string `json:"tuning_digest,omitempty"`
}

// New captures world in sorted fact order.
func New(scenarioID, runID string, tick uint64, world *facts.State) SnapshotV1 {
	return SnapshotV1{
		Header: Header{
			Version:    Version,
			ScenarioID: scenarioID,
			RunID:      runID,
			Tick:       tick,
			Digest:     world.Digest(),
		},
		Facts: world.Facts(),
	}
}

func (s SnapshotV1) World() *facts.State {
	return facts.FromFacts(s.Facts...)
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadHeader decodes only the first line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

// ReadSnapshot decodes a snapshot and checks the stored digest against the
// decoded facts.
func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("json decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if got := snap.World().Digest(); got != snap.Header.Digest {
		return snap, fmt.Errorf("snapshot digest mismatch: header %s, facts %s", snap.Header.Digest, got)
	}
	return snap, nil
}
