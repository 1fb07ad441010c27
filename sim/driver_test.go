package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/systems"
)

type countingObserver struct {
	before, after int
	steps         []int64
}

func (o *countingObserver) BeforeStep() { o.before++ }

func (o *countingObserver) AfterStep(step int64, _ systems.StepStats) {
	o.after++
	o.steps = append(o.steps, step)
}

func TestDriverStepsMode(t *testing.T) {
	s := newScenario(t)
	d, err := NewDriver(s, config.RunConfig{Mode: config.RunModeSteps, StepsPerUpdate: 3, MaxSubsteps: 1})
	require.NoError(t, err)

	// Elapsed time is irrelevant in steps mode.
	n, err := d.Advance(0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = d.Advance(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(6), s.Step())
}

func TestDriverRealtimeAccumulates(t *testing.T) {
	s := newScenario(t)
	d, err := NewDriver(s, config.RunConfig{Mode: config.RunModeRealtime, StepsPerUpdate: 1, MaxSubsteps: 4})
	require.NoError(t, err)

	n, err := d.Advance(4 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = d.Advance(7 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = d.Advance(25 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(3), s.Step())
	assert.Zero(t, d.Dropped())
}

func TestDriverRealtimeCapsSubsteps(t *testing.T) {
	s := newScenario(t)
	d, err := NewDriver(s, config.RunConfig{Mode: config.RunModeRealtime, StepsPerUpdate: 1, MaxSubsteps: 4})
	require.NoError(t, err)

	n, err := d.Advance(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Greater(t, d.Dropped(), 0.9)

	// The backlog is gone.
	n, err = d.Advance(0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDriverStopsAtMaxSteps(t *testing.T) {
	s := newScenario(t)
	d, err := NewDriver(s, config.RunConfig{Mode: config.RunModeSteps, StepsPerUpdate: 4, MaxSubsteps: 1, MaxSteps: 6})
	require.NoError(t, err)

	n, _ := d.Advance(0)
	assert.Equal(t, 4, n)
	assert.False(t, d.Done())
	n, _ = d.Advance(0)
	assert.Equal(t, 2, n)
	assert.True(t, d.Done())
	assert.Equal(t, int64(6), s.Step())
}

func TestNewDriverRejectsBadRunConfig(t *testing.T) {
	s := newScenario(t)
	_, err := NewDriver(s, config.RunConfig{Mode: "turbo", StepsPerUpdate: 1, MaxSubsteps: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewDriver(s, config.RunConfig{Mode: config.RunModeSteps})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewDriver(nil, config.Default().Run)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDriverNotifiesObserver(t *testing.T) {
	s := newScenario(t)
	d, err := NewDriver(s, config.RunConfig{Mode: config.RunModeSteps, StepsPerUpdate: 2, MaxSubsteps: 1, MaxSteps: 3})
	require.NoError(t, err)

	obs := &countingObserver{}
	d.Observe(obs)

	_, err = d.Advance(0)
	require.NoError(t, err)
	require.NoError(t, d.StepOnce())
	require.NoError(t, d.StepOnce()) // limit reached, no-op

	assert.Equal(t, 3, obs.before)
	assert.Equal(t, 3, obs.after)
	assert.Equal(t, []int64{1, 2, 3}, obs.steps)
	assert.True(t, d.Done())
	assert.Equal(t, config.RunModeSteps, d.Mode())
}
