package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hexplan.ai/internal/logging"
	"hexplan.ai/internal/sim/scenario"
	"hexplan.ai/internal/sim/tuning"
)

type globalOpts struct {
	tuningPath string
	dataDir    string
	logLevel   string
}

// tuning loads the tuning file; a missing file means defaults.
func (o *globalOpts) tuning() (tuning.Tuning, error) {
	t, err := tuning.Load(o.tuningPath)
	if errors.Is(err, os.ErrNotExist) {
		return tuning.Defaults(), nil
	}
	return t, err
}

func (o *globalOpts) load(path string) (*scenario.Scenario, tuning.Tuning, error) {
	t, err := o.tuning()
	if err != nil {
		return nil, t, err
	}
	sc, err := scenario.Load(path, t)
	return sc, t, err
}

func (o *globalOpts) logger() (*zap.Logger, error) {
	return logging.New(o.logLevel, true)
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:           "goapctl",
		Short:         "Plan, simulate and inspect hex-grid team scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.tuningPath, "tuning", "./configs/tuning.yaml", "tuning file (missing file means defaults)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data", "./data", "runtime data directory")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPlanCmd(opts),
		newSimulateCmd(opts),
		newValidateCmd(opts),
		newSnapshotCmd(opts),
		newDBCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "goapctl:", err)
		os.Exit(1)
	}
}
