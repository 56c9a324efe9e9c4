package engine

import (
	"fmt"
	"time"
)

// ApplyState is the auto-apply controller state.
type ApplyState int

const (
	StateOff ApplyState = iota
	StateOn
)

func (s ApplyState) String() string {
	if s == StateOn {
		return "on"
	}
	return "off"
}

// MarshalText implements encoding.TextMarshaler.
func (s ApplyState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason explains a controller transition.
type Reason string

const (
	ReasonToggle       Reason = "toggle"
	ReasonClick        Reason = "click"
	ReasonModifiers    Reason = "modifiers"
	ReasonApplied      Reason = "applied"
	ReasonDataset      Reason = "dataset_changed"
	ReasonTimeout      Reason = "timeout"
	ReasonIncompatible Reason = "incompatible"
	ReasonDeactivate   Reason = "deactivate"
	ReasonCatalog      Reason = "catalog_changed"
)

// autoOffGrace is the remaining time at which the countdown expires.
const autoOffGrace = 500 * time.Millisecond

// Transition records a controller state change.
type Transition struct {
	From      ApplyState    `json:"from"`
	To        ApplyState    `json:"to"`
	Reason    Reason        `json:"reason"`
	Remaining time.Duration `json:"remaining"`
	Suppress  bool          `json:"suppress_auto_off"`
}

func (t Transition) String() string {
	return fmt.Sprintf("%s->%s (%s, remaining=%s)", t.From, t.To, t.Reason, t.Remaining)
}

// AutoApply is the auto-apply state machine.
//
// It owns no goroutines and no timers: the Engine calls Tick once per tick
// interval from its event loop. Every method returns the resulting
// Transition and whether it is worth reporting (a state change or an
// explicit arm).
type AutoApply struct {
	countdown                time.Duration
	tick                     time.Duration
	deactivateIfIncompatible bool

	state     ApplyState
	remaining time.Duration
	suppress  bool
}

// NewAutoApply creates a controller in the Off state.
func NewAutoApply(cfg Config) *AutoApply {
	a := &AutoApply{}
	a.SetConfig(cfg)
	return a
}

// SetConfig updates the countdown policy. The current state is kept; a
// running countdown is clamped to the new full duration.
func (a *AutoApply) SetConfig(cfg Config) {
	a.countdown = time.Duration(cfg.CountdownSeconds) * time.Second
	a.tick = cfg.TickInterval
	if a.tick <= 0 {
		a.tick = DefaultTickInterval
	}
	a.deactivateIfIncompatible = cfg.DeactivateIfIncompatible
	if a.state == StateOn && a.remaining > a.Full() {
		a.remaining = a.Full()
	}
}

// Full is the countdown start value: the configured duration plus the
// expiry grace.
func (a *AutoApply) Full() time.Duration {
	return a.countdown + autoOffGrace
}

// State returns the current state.
func (a *AutoApply) State() ApplyState { return a.state }

// Armed reports whether the controller is On.
func (a *AutoApply) Armed() bool { return a.state == StateOn }

// Remaining returns the time left before auto-off. It is zero while Off and
// while no countdown is configured.
func (a *AutoApply) Remaining() time.Duration {
	if a.state == StateOff || a.countdown <= 0 {
		return 0
	}
	return a.remaining
}

// SuppressAutoOff reports whether the current arm cycle ignores the
// countdown.
func (a *AutoApply) SuppressAutoOff() bool { return a.suppress }

// Arm turns the controller on with a full countdown. Arming while On
// restarts the countdown and replaces the suppression flag.
func (a *AutoApply) Arm(suppressAutoOff bool, reason Reason) Transition {
	from := a.state
	a.state = StateOn
	a.remaining = a.Full()
	a.suppress = suppressAutoOff
	return a.transition(from, reason)
}

// Disarm turns the controller off.
func (a *AutoApply) Disarm(reason Reason) (Transition, bool) {
	from := a.state
	a.off()
	return a.transition(from, reason), from != a.state
}

// Tick advances the countdown by one tick.
func (a *AutoApply) Tick() (Transition, bool) {
	if a.state == StateOff || a.countdown <= 0 {
		return a.transition(a.state, ReasonTimeout), false
	}
	a.remaining -= a.tick
	if a.remaining <= autoOffGrace && !a.suppress {
		a.off()
		return a.transition(StateOn, ReasonTimeout), true
	}
	return a.transition(StateOn, ReasonTimeout), false
}

// Applied reports the outcome of a synchronization while armed. An
// applicable result restarts the countdown; an inapplicable one turns the
// controller off when DeactivateIfIncompatible is configured.
func (a *AutoApply) Applied(applicable bool) (Transition, bool) {
	if a.state == StateOff {
		return a.transition(StateOff, ReasonApplied), false
	}
	if applicable {
		a.remaining = a.Full()
		return a.transition(StateOn, ReasonApplied), false
	}
	if a.deactivateIfIncompatible {
		a.off()
		return a.transition(StateOn, ReasonIncompatible), true
	}
	return a.transition(StateOn, ReasonApplied), false
}

// DatasetChanged restarts the countdown while On.
func (a *AutoApply) DatasetChanged() Transition {
	if a.state == StateOn {
		a.remaining = a.Full()
	}
	return a.transition(a.state, ReasonDataset)
}

func (a *AutoApply) off() {
	a.state = StateOff
	a.remaining = 0
	a.suppress = false
}

func (a *AutoApply) transition(from ApplyState, reason Reason) Transition {
	return Transition{
		From:      from,
		To:        a.state,
		Reason:    reason,
		Remaining: a.Remaining(),
		Suppress:  a.suppress,
	}
}
