// Package executor drives one in-flight action per unit across game ticks.
package executor

import (
	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

type Kind uint8

const (
	Instant Kind = iota + 1
	Timed
)

func (k Kind) String() string {
	switch k {
	case Instant:
		return "instant"
	case Timed:
		return "timed"
	default:
		return "unknown"
	}
}

// RuntimeAction is an instance plus its progress. Duration and Elapsed are
// seconds and only meaningful for Timed.
type RuntimeAction struct {
	Kind     Kind
	Instance action.Instance
	Duration float64
	Elapsed  float64
}

func NewInstant(a action.Instance) RuntimeAction {
	return RuntimeAction{Kind: Instant, Instance: a}
}

func NewTimed(a action.Instance, duration float64) RuntimeAction {
	return RuntimeAction{Kind: Timed, Instance: a, Duration: duration}
}

// Progress is Elapsed/Duration clamped to [0,1]; instant actions report 0.
func (r RuntimeAction) Progress() float64 {
	if r.Kind != Timed || r.Duration <= 0 {
		return 0
	}
	p := r.Elapsed / r.Duration
	if p > 1 {
		return 1
	}
	return p
}

// Listener receives lifecycle notifications synchronously from Start and Update.
type Listener interface {
	OnStart(a action.Instance)
	OnComplete(a action.Instance)
}

// Funcs adapts plain functions to Listener. Nil fields are skipped.
type Funcs struct {
	Start    func(action.Instance)
	Complete func(action.Instance)
}

func (f Funcs) OnStart(a action.Instance) {
	if f.Start != nil {
		f.Start(a)
	}
}

func (f Funcs) OnComplete(a action.Instance) {
	if f.Complete != nil {
		f.Complete(a)
	}
}

type Executor struct {
	current  *RuntimeAction
	listener Listener
}

func New(l Listener) *Executor {
	return &Executor{listener: l}
}

func (e *Executor) SetListener(l Listener) { e.listener = l }

// Start replaces whatever is running. A displaced action does not complete.
func (e *Executor) Start(ra RuntimeAction) {
	ra.Elapsed = 0
	e.current = &ra
	if e.listener != nil {
		e.listener.OnStart(ra.Instance)
	}
}

// Update advances the current action by dt and reports whether it completed
// during this call. Completion applies the effects to world before the
// listener is notified.
func (e *Executor) Update(dt float64, world *facts.State) bool {
	if e.current == nil {
		return false
	}
	cur := e.current
	if cur.Kind == Timed {
		cur.Elapsed += dt
		if cur.Elapsed < cur.Duration {
			return false
		}
	}
	e.current = nil
	world.ApplyEffects(cur.Instance.Effects)
	if e.listener != nil {
		e.listener.OnComplete(cur.Instance)
	}
	return true
}

// Abort drops the current action without applying effects.
func (e *Executor) Abort() { e.current = nil }

// Current returns a copy of the in-flight action.
func (e *Executor) Current() (RuntimeAction, bool) {
	if e.current == nil {
		return RuntimeAction{}, false
	}
	return *e.current, true
}

func (e *Executor) Idle() bool { return e.current == nil }
