// Package app runs a window, a Vulkan context, a swapchain and an imgui
// overlay as one frame loop. Applications fill in the On hooks and the window
// input handlers, then call Run.
package app

import (
	"runtime"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/zzxzzk115/vulkaninja"
	"github.com/zzxzzk115/vulkaninja/ui"
	"github.com/zzxzzk115/vulkaninja/window"
)

type App struct {
	Config    Config
	Window    *window.Window
	Context   *vulkaninja.Context
	Swapchain *vulkaninja.Swapchain
	UI        *ui.Overlay

	// OnStart runs once before the first frame
	OnStart func() error
	// OnUpdate runs every frame with the time since the previous update in
	// milliseconds. imgui widgets are built here.
	OnUpdate func(dt float32)
	// OnRender records into the frame's command buffer before the overlay
	// is drawn on top of the current swapchain image.
	OnRender func(cb *vulkaninja.CommandBuffer) error
	// OnShutdown runs once the device is idle, before the context is
	// destroyed. Resources created in OnStart are released here.
	OnShutdown func()
	// OnResize runs after the swapchain was recreated
	OnResize func(width, height uint32)

	running bool
	timer   *vulkaninja.CPUTimer
	log     *slog.Logger
}

// New opens the window and creates everything the frame loop needs. The
// calling goroutine is locked to its OS thread, GLFW must stay on it.
func New(cfg Config) (*App, error) {
	runtime.LockOSThread()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	a := &App{
		Config:  cfg,
		running: true,
		timer:   vulkaninja.NewCPUTimer(),
		log:     vulkaninja.Logger().With("component", "app"),
	}

	var err error
	a.Window, err = window.Create(cfg.Window)
	if err != nil {
		return nil, err
	}
	if err := a.initVulkan(); err != nil {
		a.destroy()
		return nil, err
	}

	a.UI, err = ui.New(a.Context, a.Swapchain.Format, cfg.UI)
	if err != nil {
		a.destroy()
		return nil, err
	}
	a.UI.Attach(a.Window)
	a.Window.Handlers.Size = a.windowSize
	return a, nil
}

func (a *App) initVulkan() error {
	cfg := a.Config.Context
	cfg.InstanceExtensions = append(append([]string(nil), cfg.InstanceExtensions...),
		a.Window.RequiredInstanceExtensions()...)

	var err error
	a.Context, err = vulkaninja.CreateContext(cfg)
	if err != nil {
		return err
	}
	surface, err := a.Window.CreateSurface(a.Context.Instance)
	if err != nil {
		return err
	}
	if err := a.Context.InitDevice(surface); err != nil {
		return err
	}

	width, height := a.Window.FramebufferSize()
	a.Swapchain, err = a.Context.CreateSwapchain(vulkaninja.SwapchainCreateInfo{
		Width:  uint32(width),
		Height: uint32(height),
		VSync:  a.Config.VSync,
	})
	return err
}

// Terminate makes Run return after the current frame
func (a *App) Terminate() {
	a.running = false
}

// CurrentImage is the swapchain image the current frame renders into
func (a *App) CurrentImage() *vulkaninja.Image {
	return a.Swapchain.CurrentImage()
}

// Run calls OnStart, draws frames until the window is closed or Terminate is
// called, then calls OnShutdown and releases every resource. The App cannot
// be used after Run returns.
func (a *App) Run() error {
	if a.OnStart != nil {
		if err := a.OnStart(); err != nil {
			a.destroy()
			return errors.Wrap(err, "start")
		}
	}

	a.timer.Restart()
	var runErr error
	for a.running && !a.Window.ShouldClose() {
		if !pumpEvents(a.Window) {
			continue
		}
		if err := a.frame(); err != nil {
			runErr = err
			break
		}
	}

	if err := a.Context.WaitIdle(); err != nil && runErr == nil {
		runErr = err
	}
	if a.OnShutdown != nil {
		a.OnShutdown()
	}
	a.destroy()
	return runErr
}

// eventSource is the part of the window the frame loop drives
type eventSource interface {
	PollEvents()
	WaitEvents()
	Size() (int, int)
}

// pumpEvents dispatches window events and reports whether a frame can be
// drawn. A minimized window blocks until its next event.
func pumpEvents(w eventSource) bool {
	w.PollEvents()
	if width, height := w.Size(); width == 0 && height == 0 {
		w.WaitEvents()
		return false
	}
	return true
}

func (a *App) frame() error {
	dt := a.timer.ElapsedInMilli()
	a.UI.NewFrame(dt)
	if a.OnUpdate != nil {
		a.OnUpdate(dt)
	}
	a.timer.Restart()

	sc := a.Swapchain
	if err := sc.WaitNextFrame(); err != nil {
		return err
	}
	cb, err := sc.BeginCommandBuffer()
	if err != nil {
		return err
	}
	if a.OnRender != nil {
		if err := a.OnRender(cb); err != nil {
			return errors.Wrap(err, "render")
		}
	}

	img := sc.CurrentImage()
	if err := a.UI.Render(cb, img, sc.InflightIndex); err != nil {
		return err
	}
	cb.TransitionLayout(img, vk.ImageLayoutPresentSrc)
	if err := cb.End(); err != nil {
		return err
	}

	if err := sc.Submit(); err != nil {
		return err
	}
	return sc.PresentImage()
}

// windowSize recreates the swapchain at the extent the surface reports. A
// minimized window reports zero and keeps the old swapchain.
func (a *App) windowSize(_, _ int) {
	caps, err := a.Context.PhysicalDevice.GetSurfaceCapabilities(a.Context.Surface)
	if err != nil {
		a.log.Error("query surface capabilities", "error", err)
		return
	}
	width, height := caps.CurrentExtent.Width, caps.CurrentExtent.Height
	a.log.Debug("window resized", "width", width, "height", height)
	if width == 0 || height == 0 {
		return
	}

	if err := a.Swapchain.Resize(width, height); err != nil {
		a.log.Error("resize swapchain", "error", err)
		a.Terminate()
		return
	}
	a.UI.ReleaseTargets()
	if a.OnResize != nil {
		a.OnResize(a.Swapchain.Extent.Width, a.Swapchain.Extent.Height)
	}
}

func (a *App) destroy() {
	if a.UI != nil {
		a.UI.Destroy()
		a.UI = nil
	}
	if a.Swapchain != nil {
		a.Swapchain.Destroy()
		a.Swapchain = nil
	}
	if a.Context != nil {
		a.Context.Destroy()
		a.Context = nil
	}
	if a.Window != nil {
		a.Window.Destroy()
		a.Window = nil
	}
}
