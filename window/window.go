// Package window is a GLFW window that can present Vulkan images.
//
// GLFW must be used from the main OS thread, callers lock it with
// runtime.LockOSThread before calling Create.
package window

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"

	"github.com/zzxzzk115/vulkaninja"
)

// Handlers are called from PollEvents. Nil handlers are skipped.
type Handlers struct {
	Key         func(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey)
	CharMods    func(char rune, mods glfw.ModifierKey)
	MouseButton func(button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey)
	CursorPos   func(x, y float64)
	CursorEnter func(entered bool)
	Scroll      func(x, y float64)
	Drop        func(paths []string)
	// Size is called with the new window size in screen coordinates
	Size func(width, height int)
}

// InputCapture tells the window which input is consumed by an overlay.
// Captured keyboard and mouse events are not passed to the Handlers.
type InputCapture interface {
	WantCaptureMouse() bool
	WantCaptureKeyboard() bool
}

type Config struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	Resizable bool   `toml:"resizable"`
}

type Window struct {
	GLFW     *glfw.Window
	Handlers Handlers
	// Raw handlers see every event before Capture filters them
	Raw     Handlers
	Capture InputCapture

	width, height int
	pending       *[2]int
	mouse         mouseTracker
}

// Create initializes GLFW, points the Vulkan loader at it and opens a window
// without a client API.
func Create(cfg Config) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("vulkan is not supported by glfw")
	}
	if err := vulkaninja.InitLoaderFrom(glfw.GetVulkanGetInstanceProcAddress()); err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "initialize vulkan")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if cfg.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "create window")
	}

	w := &Window{GLFW: win, width: cfg.Width, height: cfg.Height}
	x, y := win.GetCursorPos()
	w.mouse.last = lin.Vec2{float32(x), float32(y)}

	win.SetKeyCallback(w.keyChange)
	win.SetCharModsCallback(w.charModsChange)
	win.SetMouseButtonCallback(w.mouseButtonChange)
	win.SetCursorPosCallback(w.cursorPosChange)
	win.SetCursorEnterCallback(w.cursorEnterChange)
	win.SetScrollCallback(w.scrollChange)
	win.SetDropCallback(w.dropChange)
	win.SetSizeCallback(w.sizeChange)
	return w, nil
}

func (w *Window) wantMouse() bool {
	return w.Capture != nil && w.Capture.WantCaptureMouse()
}

func (w *Window) wantKeyboard() bool {
	return w.Capture != nil && w.Capture.WantCaptureKeyboard()
}

func (w *Window) keyChange(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if w.Raw.Key != nil {
		w.Raw.Key(key, scancode, action, mods)
	}
	if w.wantKeyboard() || w.Handlers.Key == nil {
		return
	}
	w.Handlers.Key(key, scancode, action, mods)
}

func (w *Window) charModsChange(_ *glfw.Window, char rune, mods glfw.ModifierKey) {
	if w.Raw.CharMods != nil {
		w.Raw.CharMods(char, mods)
	}
	if w.Handlers.CharMods != nil {
		w.Handlers.CharMods(char, mods)
	}
}

func (w *Window) mouseButtonChange(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if w.Raw.MouseButton != nil {
		w.Raw.MouseButton(button, action, mods)
	}
	if w.wantMouse() || w.Handlers.MouseButton == nil {
		return
	}
	w.Handlers.MouseButton(button, action, mods)
}

func (w *Window) cursorPosChange(_ *glfw.Window, x, y float64) {
	if w.Handlers.CursorPos != nil {
		w.Handlers.CursorPos(x, y)
	}
}

func (w *Window) cursorEnterChange(_ *glfw.Window, entered bool) {
	if w.Handlers.CursorEnter != nil {
		w.Handlers.CursorEnter(entered)
	}
}

func (w *Window) scrollChange(_ *glfw.Window, x, y float64) {
	if w.Raw.Scroll != nil {
		w.Raw.Scroll(x, y)
	}
	if w.wantMouse() {
		return
	}
	w.mouse.addScroll(float32(y))
	if w.Handlers.Scroll != nil {
		w.Handlers.Scroll(x, y)
	}
}

func (w *Window) dropChange(_ *glfw.Window, paths []string) {
	if w.Handlers.Drop != nil {
		w.Handlers.Drop(paths)
	}
}

func (w *Window) sizeChange(_ *glfw.Window, width, height int) {
	w.width, w.height = width, height
	if w.Handlers.Size != nil {
		w.Handlers.Size(width, height)
	}
}

func (w *Window) ShouldClose() bool {
	return w.GLFW.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.GLFW.SetShouldClose(v)
}

// PollEvents dispatches pending events, updates the mouse drag and scroll
// values and applies a size set with SetSize.
func (w *Window) PollEvents() {
	glfw.PollEvents()
	w.afterEvents()
}

// WaitEvents is PollEvents that sleeps until at least one event arrived
func (w *Window) WaitEvents() {
	glfw.WaitEvents()
	w.afterEvents()
}

func (w *Window) afterEvents() {
	w.mouse.update(w.CursorPos(), w.IsMouseButtonDown(glfw.MouseButtonLeft), w.IsMouseButtonDown(glfw.MouseButtonRight))
	if w.pending != nil {
		w.GLFW.SetSize(w.pending[0], w.pending[1])
		w.width, w.height = w.pending[0], w.pending[1]
		w.pending = nil
	}
}

// SetSize resizes the window on the next PollEvents
func (w *Window) SetSize(width, height int) {
	w.pending = &[2]int{width, height}
}

// Size is the window size in screen coordinates
func (w *Window) Size() (int, int) {
	return w.width, w.height
}

// FramebufferSize is the window size in pixels
func (w *Window) FramebufferSize() (int, int) {
	return w.GLFW.GetFramebufferSize()
}

func (w *Window) Aspect() float32 {
	if w.height == 0 {
		return 0
	}
	return float32(w.width) / float32(w.height)
}

func (w *Window) IsKeyDown(key glfw.Key) bool {
	if key < glfw.KeySpace || key > glfw.KeyLast {
		return false
	}
	return w.GLFW.GetKey(key) == glfw.Press
}

// IsMouseButtonDown is false while an overlay captures the mouse
func (w *Window) IsMouseButtonDown(button glfw.MouseButton) bool {
	if button < glfw.MouseButton1 || button > glfw.MouseButtonLast || w.wantMouse() {
		return false
	}
	return w.GLFW.GetMouseButton(button) == glfw.Press
}

func (w *Window) CursorPos() lin.Vec2 {
	x, y := w.GLFW.GetCursorPos()
	return lin.Vec2{float32(x), float32(y)}
}

// MouseDragLeft is the cursor movement since the last PollEvents while the
// left button is held.
func (w *Window) MouseDragLeft() lin.Vec2 {
	return w.mouse.dragLeft
}

func (w *Window) MouseDragRight() lin.Vec2 {
	return w.mouse.dragRight
}

// MouseScroll is the vertical scroll received before the last PollEvents
func (w *Window) MouseScroll() float32 {
	return w.mouse.scroll
}

// RequiredInstanceExtensions are the instance extensions needed to create a
// surface for the window.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.GLFW.GetRequiredInstanceExtensions()
}

func (w *Window) CreateSurface(instance *vulkaninja.Instance) (vk.Surface, error) {
	surface, err := w.GLFW.CreateWindowSurface(instance.VKInstance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(surface), nil
}

// Destroy closes the window and terminates GLFW
func (w *Window) Destroy() {
	w.GLFW.Destroy()
	glfw.Terminate()
}

type mouseTracker struct {
	last        lin.Vec2
	dragLeft    lin.Vec2
	dragRight   lin.Vec2
	scroll      float32
	scrollAccum float32
}

func (m *mouseTracker) update(pos lin.Vec2, left, right bool) {
	delta := lin.Vec2{pos[0] - m.last[0], pos[1] - m.last[1]}
	m.dragLeft, m.dragRight = lin.Vec2{}, lin.Vec2{}
	if left {
		m.dragLeft = delta
	}
	if right {
		m.dragRight = delta
	}
	m.last = pos
	m.scroll = m.scrollAccum
	m.scrollAccum = 0
}

func (m *mouseTracker) addScroll(y float32) {
	m.scrollAccum += y
}
