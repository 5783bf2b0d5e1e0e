package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hexplan.ai/internal/persistence/archive"
	"hexplan.ai/internal/persistence/indexdb"
	persistlog "hexplan.ai/internal/persistence/log"
	"hexplan.ai/internal/persistence/snapshot"
	"hexplan.ai/internal/sim/runner"
)

func newSimulateCmd(opts *globalOpts) *cobra.Command {
	var (
		noLog bool
		noDB  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate <scenario>",
		Short: "Plan, execute and replan a scenario until its goals hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, tune, err := opts.load(args[0])
			if err != nil {
				return err
			}
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			runID := uuid.NewString()
			var (
				events runner.Sinks
				plans  runner.PlanSinks
			)
			if !noLog {
				el := persistlog.NewEventLogger(opts.dataDir)
				el.OnError = func(err error) { logger.Warn("event log write", zap.Error(err)) }
				defer el.Close()
				pl := persistlog.NewPlanLogger(opts.dataDir)
				pl.OnError = func(err error) { logger.Warn("plan log write", zap.Error(err)) }
				defer pl.Close()
				events = append(events, el)
				plans = append(plans, pl)
			}
			var idx *indexdb.SQLiteIndex
			if !noDB {
				idx, err = indexdb.OpenSQLite(filepath.Join(opts.dataDir, "index", "plans.sqlite"))
				if err != nil {
					return fmt.Errorf("open index: %w", err)
				}
				defer idx.Close()
				if err := idx.UpsertTuning(tune); err != nil {
					logger.Warn("index: upsert tuning", zap.Error(err))
				}
				idx.RecordRun(indexdb.RunRow{
					RunID:          runID,
					ScenarioID:     sc.ID,
					ScenarioDigest: sc.Digest,
					TuningDigest:   tune.Digest(),
				})
				events = append(events, idx)
				plans = append(plans, idx)
			}

			snapDir := filepath.Join(opts.dataDir, "snapshots", runID)
			world := sc.World()
			if _, err := writeSnapshot(snapDir, sc.ID, runID, 0, world, sc.Digest, tune.Digest(), idx); err != nil {
				return err
			}

			r := runner.New(runner.Config{
				Tuning: tune,
				RunID:  runID,
				Logger: logger.Named("runner"),
				Events: events,
				Plans:  plans,
			}, world)
			sum, runErr := r.PlanAndRun(cmd.Context(), sc)

			final := r.World()
			path, err := writeSnapshot(snapDir, sc.ID, runID, r.Tick(), final, sc.Digest, tune.Digest(), idx)
			if err != nil {
				return err
			}
			snap, err := snapshot.ReadSnapshot(path)
			if err != nil {
				return err
			}
			archived, err := archive.ArchiveRunSnapshot(opts.dataDir, path, snap, sum.Done)
			if err != nil {
				logger.Warn("archive run snapshot", zap.Error(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run=%s rounds=%d ticks=%d done=%v digest=%s\n", sum.RunID, sum.Rounds, sum.Ticks, sum.Done, final.Digest())
			if archived != "" {
				fmt.Fprintf(out, "archived %s\n", archived)
			}
			if runErr != nil {
				if errors.Is(runErr, runner.ErrTickBudget) {
					return fmt.Errorf("run %s: %w (max_ticks=%d)", runID, runErr, tune.MaxTicks)
				}
				return runErr
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noLog, "no-log", false, "skip the zstd event and plan logs")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "skip the sqlite index")
	return cmd
}
