package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionRecordingCycle(t *testing.T) {
	state := StateIdle
	for _, step := range []struct {
		event Event
		want  State
	}{
		{EventStart, StateRecording},
		{EventStop, StateTranscribing},
		{EventTranscribed, StateIdle},
		{EventStart, StateRecording},
		{EventCancel, StateIdle},
	} {
		next, err := Transition(state, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next)
		state = next
	}
}

func TestTransitionFailAcceptedEverywhere(t *testing.T) {
	for _, state := range []State{StateIdle, StateRecording, StateTranscribing, StateError} {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionRejections(t *testing.T) {
	tests := []struct {
		state State
		event Event
	}{
		{StateIdle, EventStop},
		{StateIdle, EventCancel},
		{StateIdle, EventTranscribed},
		{StateRecording, EventStart},
		{StateRecording, EventTranscribed},
		{StateTranscribing, EventStart},
		{StateTranscribing, EventStop},
		{StateTranscribing, EventCancel},
		{StateError, EventStop},
	}

	for _, tc := range tests {
		t.Run(string(tc.state)+"/"+string(tc.event), func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.ErrorIs(t, err, ErrInvalidTransition)
			require.Equal(t, tc.state, next)
			require.False(t, Can(tc.state, tc.event))
		})
	}
}

func TestTransitionErrorRecovery(t *testing.T) {
	next, err := Transition(StateError, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(StateError, EventReset)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionUnknownState(t *testing.T) {
	_, err := Transition(State("paused"), EventStart)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidTransition)
	require.Contains(t, err.Error(), "unknown state")
}

func TestStatePredicates(t *testing.T) {
	require.True(t, StateRecording.Recording())
	require.False(t, StateRecording.Processing())
	require.True(t, StateTranscribing.Processing())
	require.False(t, StateIdle.Recording())
}
