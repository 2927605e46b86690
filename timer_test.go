package vulkaninja

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUTimerStates(t *testing.T) {
	timer := &GPUTimer{Period: 2}

	err := timer.stop()
	assert.True(t, errors.Is(err, ErrTimerState))

	require.NoError(t, timer.start())
	assert.True(t, errors.Is(timer.start(), ErrTimerState), "started twice")
	require.NoError(t, timer.stop())
	assert.Equal(t, "stopped", timer.state.String())

	timer.timestamps = [2]uint64{100, 350}
	assert.Equal(t, float32(500), timer.elapsed())
	assert.Equal(t, timerReady, timer.state)

	require.NoError(t, timer.start(), "ready again after reading")
}

func TestGPUTimerElapsedBackwards(t *testing.T) {
	timer := &GPUTimer{Period: 1, state: timerStopped, timestamps: [2]uint64{10, 5}}
	assert.Zero(t, timer.elapsed())
}

func TestGPUTimerNotStopped(t *testing.T) {
	ns, err := (&GPUTimer{}).ElapsedInNano()
	require.NoError(t, err)
	assert.Zero(t, ns)

	ms, err := (&GPUTimer{state: timerStarted}).ElapsedInMilli()
	require.NoError(t, err)
	assert.Zero(t, ms)
}

func TestCPUTimer(t *testing.T) {
	timer := NewCPUTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.ElapsedInMilli(), float32(2))

	timer.Restart()
	assert.Less(t, timer.Elapsed(), time.Second)
}
