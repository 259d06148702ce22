// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lifecycle

import (
	"fmt"
	"sync"
)

// State is a stage in the life of a server.
type State int

const (
	Starting State = iota
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Starting may jump straight to Stopped when binding fails.
var transitions = map[State][]State{
	Starting: {Running, Stopped},
	Running:  {Draining},
	Draining: {Stopped},
}

// InvalidTransitionError is returned by [Tracker.Transition] when
// the requested state cannot follow the current one.
type InvalidTransitionError struct {
	From State
	To   State
}

// Error implements the [error] interface.
func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition: %s -> %s", e.From, e.To)
}

// Tracker records the current [State] and only allows forward moves.
// It is safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	state State
	subs  []chan State
}

// NewTracker returns a [Tracker] in the [Starting] state.
func NewTracker() *Tracker {
	return &Tracker{state: Starting}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Transition moves the tracker to the given state.
func (t *Tracker) Transition(to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, next := range transitions[t.state] {
		if next != to {
			continue
		}
		t.state = to
		for _, sub := range t.subs {
			select {
			case sub <- to:
			default:
			}
		}
		return nil
	}
	return InvalidTransitionError{From: t.state, To: to}
}

// Watch returns a channel which receives every state the tracker
// moves into after the call. Slow receivers miss states rather than
// block transitions.
func (t *Tracker) Watch() <-chan State {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan State, len(transitions)+1)
	t.subs = append(t.subs, ch)
	return ch
}
