// Package runner executes team plans on the authoritative world, one tick at
// a time, with one executor per agent.
package runner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/executor"
	"hexplan.ai/internal/goap/facts"
	"hexplan.ai/internal/logging"
	"hexplan.ai/internal/observe"
	"hexplan.ai/internal/sim/tuning"
)

var ErrTickBudget = errors.New("runner: tick budget exhausted")

type Config struct {
	Tuning tuning.Tuning
	// RunID defaults to a random UUID.
	RunID   string
	Logger  *zap.Logger
	Events  EventSink
	Plans   PlanSink
	Metrics *observe.Metrics
}

type agentState struct {
	ex    *executor.Executor
	queue []action.Instance
}

type Runner struct {
	cfg   Config
	log   *zap.Logger
	world *facts.State

	runID string
	round int
	tick  uint64

	order  []string
	agents map[string]*agentState
}

// New takes ownership of world; the runner mutates it as actions complete.
func New(cfg Config, world *facts.State) *Runner {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Runner{
		cfg:    cfg,
		log:    logging.OrNop(cfg.Logger).With(zap.String("run_id", cfg.RunID)),
		world:  world,
		runID:  cfg.RunID,
		agents: map[string]*agentState{},
	}
}

func (r *Runner) RunID() string       { return r.runID }
func (r *Runner) World() *facts.State { return r.world }
func (r *Runner) Tick() uint64        { return r.tick }

func (r *Runner) agent(id string) *agentState {
	if a, ok := r.agents[id]; ok {
		return a
	}
	a := &agentState{}
	a.ex = executor.New(executor.Funcs{
		Start: func(in action.Instance) {
			r.emit(Event{Agent: id, Kind: EventStart, Action: in.Name})
		},
		Complete: func(in action.Instance) {
			r.emit(Event{Agent: id, Kind: EventComplete, Action: in.Name, Effects: in.Effects})
		},
	})
	r.agents[id] = a
	r.order = append(r.order, id)
	return a
}

func (r *Runner) emit(e Event) {
	e.RunID = r.runID
	e.Round = r.round
	e.Tick = r.tick
	if r.cfg.Events != nil {
		r.cfg.Events.Emit(e)
	}
	r.cfg.Metrics.RecordEvent(context.Background(), string(e.Kind))
	r.log.Debug("runner event",
		zap.String("agent", e.Agent),
		zap.String("kind", string(e.Kind)),
		zap.String("action", e.Action),
		zap.Uint64("tick", e.Tick),
	)
}

// Assign replaces the agent's queue. An action already in flight is aborted.
// Agents tick in the order they were first assigned.
func (r *Runner) Assign(agent string, plan []action.Instance) {
	a := r.agent(agent)
	if cur, ok := a.ex.Current(); ok {
		a.ex.Abort()
		r.emit(Event{Agent: agent, Kind: EventAbort, Action: cur.Instance.Name})
	}
	a.queue = append([]action.Instance(nil), plan...)
}

// Abort stops the agent's current action and clears its queue.
func (r *Runner) Abort(agent string) {
	a, ok := r.agents[agent]
	if !ok {
		return
	}
	if cur, ok := a.ex.Current(); ok {
		a.ex.Abort()
		r.emit(Event{Agent: agent, Kind: EventAbort, Action: cur.Instance.Name})
	}
	a.queue = nil
}

func (r *Runner) runtimeFor(in action.Instance) executor.RuntimeAction {
	if d, ok := r.cfg.Tuning.DurationFor(in.Name); ok {
		return executor.NewTimed(in, d)
	}
	return executor.NewInstant(in)
}

// Step advances every agent by one tick of dt seconds.
func (r *Runner) Step(dt float64) {
	r.tick++
	for _, id := range r.order {
		a := r.agents[id]
		if a.ex.Idle() && len(a.queue) > 0 {
			next := a.queue[0]
			if !next.IsApplicable(r.world) {
				r.emit(Event{Agent: id, Kind: EventStale, Action: next.Name})
				a.queue = nil
				continue
			}
			a.queue = a.queue[1:]
			a.ex.Start(r.runtimeFor(next))
		}
		cur, running := a.ex.Current()
		if running && a.ex.Update(dt, r.world) {
			r.cfg.Metrics.RecordCompletion(context.Background(), cur.Kind.String())
		}
	}
}

// Idle reports whether no agent has work in flight or queued.
func (r *Runner) Idle() bool {
	for _, a := range r.agents {
		if !a.ex.Idle() || len(a.queue) > 0 {
			return false
		}
	}
	return true
}

// Run steps until idle, ctx is done, or maxTicks steps have run. It returns
// the number of steps taken.
func (r *Runner) Run(ctx context.Context, maxTicks int) (int, error) {
	dt := r.cfg.Tuning.TickSeconds()
	n := 0
	for !r.Idle() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if n >= maxTicks {
			return n, ErrTickBudget
		}
		r.Step(dt)
		n++
	}
	return n, nil
}
