// Package fsm defines the recording lifecycle a session moves through.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateError        State = "error"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

var ErrInvalidTransition = errors.New("invalid transition")

// transitions lists every legal move except EventFail, which is accepted
// from any state. A new recording may start after an error but never while
// the previous one is still transcribing.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateRecording,
	},
	StateRecording: {
		EventStop:   StateTranscribing,
		EventCancel: StateIdle,
	},
	StateTranscribing: {
		EventTranscribed: StateIdle,
	},
	StateError: {
		EventStart: StateRecording,
		EventReset: StateIdle,
	},
}

// Transition returns the state reached from current on event.
func Transition(current State, event Event) (State, error) {
	allowed, known := transitions[current]
	if !known {
		return current, fmt.Errorf("unknown state %q", current)
	}
	if event == EventFail {
		return StateError, nil
	}
	if next, ok := allowed[event]; ok {
		return next, nil
	}
	return current, fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, current, event)
}

// Can reports whether event is legal from current.
func Can(current State, event Event) bool {
	_, err := Transition(current, event)
	return err == nil
}

// Recording reports whether audio is being captured.
func (s State) Recording() bool {
	return s == StateRecording
}

// Processing reports whether a captured recording is being transcribed.
func (s State) Processing() bool {
	return s == StateTranscribing
}
