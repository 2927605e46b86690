package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	lin "github.com/xlab/linmath"
)

func TestMouseTrackerDrag(t *testing.T) {
	m := mouseTracker{last: lin.Vec2{10, 10}}

	m.update(lin.Vec2{15, 8}, true, false)
	assert.Equal(t, lin.Vec2{5, -2}, m.dragLeft)
	assert.Equal(t, lin.Vec2{}, m.dragRight)

	m.update(lin.Vec2{20, 8}, false, true)
	assert.Equal(t, lin.Vec2{}, m.dragLeft)
	assert.Equal(t, lin.Vec2{5, 0}, m.dragRight)

	m.update(lin.Vec2{20, 8}, true, true)
	assert.Equal(t, lin.Vec2{}, m.dragLeft)
	assert.Equal(t, lin.Vec2{}, m.dragRight)
}

func TestMouseTrackerScroll(t *testing.T) {
	var m mouseTracker
	m.addScroll(1)
	m.addScroll(0.5)
	assert.Zero(t, m.scroll)

	m.update(lin.Vec2{}, false, false)
	assert.Equal(t, float32(1.5), m.scroll)

	m.update(lin.Vec2{}, false, false)
	assert.Zero(t, m.scroll)
}

type captureAll struct{}

func (captureAll) WantCaptureMouse() bool    { return true }
func (captureAll) WantCaptureKeyboard() bool { return true }

func TestCapturedInputIsNotDispatched(t *testing.T) {
	var scrolled, keyed bool
	w := &Window{Handlers: Handlers{
		Scroll: func(x, y float64) { scrolled = true },
		Key:    func(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) { keyed = true },
	}}

	w.scrollChange(nil, 0, 1)
	w.keyChange(nil, glfw.KeyA, 0, glfw.Press, 0)
	assert.True(t, scrolled)
	assert.True(t, keyed)
	assert.Equal(t, float32(1), w.mouse.scrollAccum)

	scrolled, keyed = false, false
	w.Capture = captureAll{}
	w.scrollChange(nil, 0, 1)
	w.keyChange(nil, glfw.KeyA, 0, glfw.Press, 0)
	assert.False(t, scrolled)
	assert.False(t, keyed)
	assert.Equal(t, float32(1), w.mouse.scrollAccum)
}

func TestSizeTracking(t *testing.T) {
	var got [2]int
	w := &Window{width: 800, height: 600, Handlers: Handlers{
		Size: func(width, height int) { got = [2]int{width, height} },
	}}
	assert.Equal(t, float32(800)/600, w.Aspect())

	w.sizeChange(nil, 1024, 0)
	assert.Equal(t, [2]int{1024, 0}, got)
	width, height := w.Size()
	assert.Equal(t, 1024, width)
	assert.Equal(t, 0, height)
	assert.Zero(t, w.Aspect())
}
