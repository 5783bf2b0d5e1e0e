package runner

import (
	"hexplan.ai/internal/goap/facts"
)

type EventKind string

const (
	EventStart    EventKind = "start"
	EventComplete EventKind = "complete"
	// EventStale: the queued action's preconditions no longer held when it
	// came up, so the agent's remaining queue was dropped.
	EventStale EventKind = "stale"
	EventAbort EventKind = "abort"
)

type Event struct {
	RunID  string    `json:"run_id"`
	Round  int       `json:"round"`
	Tick   uint64    `json:"tick"`
	Agent  string    `json:"agent"`
	Kind   EventKind `json:"kind"`
	Action string    `json:"action"`
	// Effects is set on complete events; replaying them in order onto the
	// starting world reproduces the final world.
	Effects []facts.Fact `json:"effects,omitempty"`
}

// PlanRecord is one agent's outcome from one team planning round.
type PlanRecord struct {
	RunID    string   `json:"run_id"`
	Round    int      `json:"round"`
	Agent    string   `json:"agent"`
	Goal     string   `json:"goal,omitempty"`
	Found    bool     `json:"found"`
	Actions  []string `json:"actions"`
	Cost     float64  `json:"cost"`
	Expanded int      `json:"expanded"`
}

type EventSink interface {
	Emit(Event)
}

type PlanSink interface {
	RecordPlan(PlanRecord)
}

// EventFunc adapts a function to EventSink.
type EventFunc func(Event)

func (f EventFunc) Emit(e Event) { f(e) }

// Sinks fans events out in order.
type Sinks []EventSink

func (s Sinks) Emit(e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(e)
		}
	}
}

type PlanSinks []PlanSink

func (s PlanSinks) RecordPlan(r PlanRecord) {
	for _, sink := range s {
		if sink != nil {
			sink.RecordPlan(r)
		}
	}
}

// Replay applies the effects of complete events onto world in order and
// returns how many were applied. Events from other runs (when runID is set)
// and events at or before fromTick are skipped.
func Replay(world *facts.State, events []Event, runID string, fromTick uint64) int {
	n := 0
	for _, e := range events {
		if e.Kind != EventComplete || e.Tick <= fromTick {
			continue
		}
		if runID != "" && e.RunID != runID {
			continue
		}
		world.ApplyEffects(e.Effects)
		n++
	}
	return n
}
