package clone_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-studio/internal/clone"
)

func reviewing(t *testing.T, sampleSize int) *clone.Machine {
	t.Helper()

	machine := clone.NewMachine()
	require.NoError(t, machine.Start())
	require.NoError(t, machine.Stop(make([]byte, sampleSize)))
	require.Equal(t, clone.StateReviewing, machine.State())

	return machine
}

func TestMachine_HappyPath(t *testing.T) {
	t.Parallel()

	machine := reviewing(t, 4096)

	sample, err := machine.Confirm()
	require.NoError(t, err)
	assert.Len(t, sample, 4096)
	assert.Equal(t, clone.StateCloning, machine.State())

	for progress := 5; progress < 100; progress += 5 {
		require.NoError(t, machine.Advance(progress))
		assert.Equal(t, clone.StateCloning, machine.State())
		assert.Equal(t, progress, machine.Snapshot().Progress)
	}

	require.NoError(t, machine.Advance(100))
	assert.Equal(t, clone.StateReady, machine.State())

	require.NoError(t, machine.Delete())
	assert.Equal(t, clone.StateIdle, machine.State())
	assert.Equal(t, clone.Snapshot{State: clone.StateIdle}, machine.Snapshot())
}

func TestMachine_ConfirmThreshold(t *testing.T) {
	t.Parallel()

	short := reviewing(t, clone.MinSampleBytes-1)

	_, err := short.Confirm()
	require.ErrorIs(t, err, clone.ErrInsufficientSample)
	assert.Equal(t, clone.StateReviewing, short.State())
	require.ErrorIs(t, short.Snapshot().Err, clone.ErrInsufficientSample)

	require.NoError(t, short.Discard())
	assert.Equal(t, clone.StateRecording, short.State())
	require.NoError(t, short.Snapshot().Err)

	exact := reviewing(t, clone.MinSampleBytes)

	_, err = exact.Confirm()
	require.NoError(t, err)
	assert.Equal(t, clone.StateCloning, exact.State())
}

func TestMachine_InvalidTransitions(t *testing.T) {
	t.Parallel()

	machine := clone.NewMachine()

	require.ErrorIs(t, machine.Stop(nil), clone.ErrInvalidTransition)
	require.ErrorIs(t, machine.Discard(), clone.ErrInvalidTransition)
	require.ErrorIs(t, machine.Advance(10), clone.ErrInvalidTransition)
	require.ErrorIs(t, machine.Delete(), clone.ErrInvalidTransition)
	require.ErrorIs(t, machine.Abort(), clone.ErrInvalidTransition)

	_, err := machine.Confirm()
	require.ErrorIs(t, err, clone.ErrInvalidTransition)

	require.NoError(t, machine.Start())
	require.ErrorIs(t, machine.Start(), clone.ErrInvalidTransition)
	assert.Equal(t, clone.StateRecording, machine.State())
}

func TestMachine_ProgressIsMonotonicAndClamped(t *testing.T) {
	t.Parallel()

	machine := reviewing(t, 2000)
	_, err := machine.Confirm()
	require.NoError(t, err)

	require.NoError(t, machine.Advance(40))
	require.NoError(t, machine.Advance(20))
	assert.Equal(t, 40, machine.Snapshot().Progress)

	require.NoError(t, machine.Advance(130))
	assert.Equal(t, 100, machine.Snapshot().Progress)
	assert.Equal(t, clone.StateReady, machine.State())
}

func TestMachine_FailReturnsToReview(t *testing.T) {
	t.Parallel()

	machine := reviewing(t, 2000)
	_, err := machine.Confirm()
	require.NoError(t, err)

	cause := errors.New("backend down")
	require.NoError(t, machine.Fail(cause))

	snapshot := machine.Snapshot()
	assert.Equal(t, clone.StateReviewing, snapshot.State)
	assert.Equal(t, 2000, snapshot.SampleSize)
	require.ErrorIs(t, snapshot.Err, cause)
}

func TestMachine_Abort(t *testing.T) {
	t.Parallel()

	machine := reviewing(t, 2000)
	require.NoError(t, machine.Abort())
	assert.Equal(t, clone.StateIdle, machine.State())
	assert.Nil(t, machine.Sample())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", clone.StateIdle.String())
	assert.Equal(t, "cloning", clone.StateCloning.String())
	assert.Equal(t, "ready", clone.StateReady.String())
}
