package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeEvents struct {
	width, height int
	polls, waits  int
}

func (f *fakeEvents) PollEvents() { f.polls++ }

func (f *fakeEvents) WaitEvents() { f.waits++ }

func (f *fakeEvents) Size() (int, int) { return f.width, f.height }

func TestPumpEventsDraws(t *testing.T) {
	w := &fakeEvents{width: 800, height: 600}
	assert.True(t, pumpEvents(w))
	assert.Equal(t, 1, w.polls)
	assert.Zero(t, w.waits)
}

func TestPumpEventsMinimizedWaits(t *testing.T) {
	w := &fakeEvents{}
	for i := 0; i < 3; i++ {
		assert.False(t, pumpEvents(w))
	}
	assert.Equal(t, 3, w.polls)
	assert.Equal(t, 3, w.waits, "a minimized window sleeps instead of spinning")

	w.width, w.height = 640, 480
	assert.True(t, pumpEvents(w))
	assert.Equal(t, 3, w.waits)
}
