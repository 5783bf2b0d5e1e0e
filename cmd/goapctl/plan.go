package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hexplan.ai/internal/goap/planner"
	"hexplan.ai/internal/sim/runner"
)

func newPlanCmd(opts *globalOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plan <scenario>",
		Short: "Plan one round for every agent without executing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			world := sc.World()
			insts := sc.Instances(world)
			res := planner.PlanTeam(world, insts, sc.Goals(world), sc.Order(), sc.MaxNodesPerAgent)

			out := cmd.OutOrStdout()
			for _, agent := range sc.Order() {
				ap := res.Agents[agent]
				names := make([]string, 0, len(ap.Plan))
				for _, i := range ap.Global() {
					names = append(names, insts[i].Name)
				}
				if asJSON {
					rec := runner.PlanRecord{
						Agent:    agent,
						Found:    ap.Found(),
						Actions:  names,
						Cost:     ap.Cost,
						Expanded: ap.Expanded,
					}
					if ap.Found() {
						rec.Goal = ap.Goal.String()
					}
					b, err := json.Marshal(rec)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(b))
					continue
				}
				if !ap.Found() {
					fmt.Fprintf(out, "%s: no plan (expanded %d)\n", agent, ap.Expanded)
					continue
				}
				fmt.Fprintf(out, "%s: %s cost=%g expanded=%d\n", agent, ap.Goal, ap.Cost, ap.Expanded)
				if len(names) > 0 {
					fmt.Fprintf(out, "  %s\n", strings.Join(names, "\n  "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON plan record per agent")
	return cmd
}

func newValidateCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Check scenario files against the schema and agent references",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bad := 0
			for _, path := range args {
				sc, _, err := opts.load(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %v\n", err)
					bad++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s id=%s agents=%d digest=%s\n", path, sc.ID, len(sc.Agents), sc.Digest)
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d scenarios invalid", bad, len(args))
			}
			return nil
		},
	}
}
