package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"hexplan.ai/internal/goap/facts"
	"hexplan.ai/internal/persistence/indexdb"
	"hexplan.ai/internal/persistence/snapshot"
)

// writeSnapshot writes dir/<tick>.snap.zst and indexes it when idx is set.
func writeSnapshot(dir, scenarioID, runID string, tick uint64, world *facts.State, scenarioDigest, tuningDigest string, idx *indexdb.SQLiteIndex) (string, error) {
	snap := snapshot.New(scenarioID, runID, tick, world)
	snap.ScenarioDigest = scenarioDigest
	snap.TuningDigest = tuningDigest
	path := filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", fmt.Errorf("snapshot write: %w", err)
	}
	idx.RecordSnapshot(path, snap)
	return path, nil
}

func newSnapshotCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <scenario> <out>",
		Short: "Write a scenario's starting world as a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, tune, err := opts.load(args[0])
			if err != nil {
				return err
			}
			snap := snapshot.New(sc.ID, "", 0, sc.World())
			snap.ScenarioDigest = sc.Digest
			snap.TuningDigest = tune.Digest()
			if err := snapshot.WriteSnapshot(args[1], snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s facts=%d digest=%s\n", args[1], len(snap.Facts), snap.Header.Digest)
			return nil
		},
	}
}
