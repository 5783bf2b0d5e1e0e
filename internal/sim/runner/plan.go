package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/planner"
	"hexplan.ai/internal/sim/scenario"
)

// Summary describes a PlanAndRun call.
type Summary struct {
	RunID  string
	Rounds int
	Ticks  int
	// Done is true when every explicit goal holds and every long-term goal
	// is achieved on the final world.
	Done  bool
	Plans []PlanRecord
}

// PlanAndRun plans the scenario's team against the live world, executes the
// plans, and replans up to Tuning.ReplanRounds more times while goals remain.
// Each round regrounds instances and re-decomposes long-term goals against the
// world as it stands after the previous round.
func (r *Runner) PlanAndRun(ctx context.Context, sc *scenario.Scenario) (Summary, error) {
	sum := Summary{RunID: r.runID}
	order := sc.Order()

	for round := 0; round <= r.cfg.Tuning.ReplanRounds; round++ {
		if sc.Done(r.world) {
			break
		}
		r.round = round
		sum.Rounds = round + 1

		insts := sc.Instances(r.world)
		started := time.Now()
		res := planner.PlanTeam(r.world, insts, sc.Goals(r.world), order, sc.MaxNodesPerAgent)
		r.cfg.Metrics.RecordPlan(ctx, "team", teamStatus(res), totalExpanded(res), time.Since(started))

		anyPlan := false
		for _, agent := range order {
			ap := res.Agents[agent]
			rec := r.record(round, agent, ap, insts)
			sum.Plans = append(sum.Plans, rec)
			if r.cfg.Plans != nil {
				r.cfg.Plans.RecordPlan(rec)
			}
			if !ap.Found() || len(ap.Plan) == 0 {
				continue
			}
			anyPlan = true
			steps := make([]action.Instance, 0, len(ap.Plan))
			for _, i := range ap.Global() {
				steps = append(steps, insts[i])
			}
			r.Assign(agent, steps)
		}
		r.log.Info("planned round",
			zap.Int("round", round),
			zap.Int("instances", len(insts)),
			zap.Bool("any_plan", anyPlan),
		)
		if !anyPlan {
			break
		}

		n, err := r.Run(ctx, r.cfg.Tuning.MaxTicks)
		sum.Ticks += n
		if err != nil {
			sum.Done = sc.Done(r.world)
			return sum, err
		}
	}
	sum.Done = sc.Done(r.world)
	return sum, nil
}

func (r *Runner) record(round int, agent string, ap planner.AgentPlan, insts []action.Instance) PlanRecord {
	rec := PlanRecord{
		RunID:    r.runID,
		Round:    round,
		Agent:    agent,
		Found:    ap.Found(),
		Actions:  []string{},
		Cost:     ap.Cost,
		Expanded: ap.Expanded,
	}
	if ap.Found() {
		rec.Goal = ap.Goal.String()
		for _, i := range ap.Global() {
			rec.Actions = append(rec.Actions, insts[i].Name)
		}
	}
	return rec
}

func teamStatus(res planner.TeamResult) string {
	for _, ap := range res.Agents {
		if !ap.Found() {
			return "no_plan"
		}
	}
	return "found"
}

func totalExpanded(res planner.TeamResult) int {
	n := 0
	for _, ap := range res.Agents {
		n += ap.Expanded
	}
	return n
}
