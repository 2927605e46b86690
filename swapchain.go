package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

const (
	// FramesInFlight is the number of frames recorded ahead of the GPU
	FramesInFlight = 3
	// swapchainMinImageCount is the minimum number of presentable images
	swapchainMinImageCount = 3
)

// presenter is the part of the swapchain that talks to the presentation
// engine.
type presenter interface {
	acquire(imageAcquired vk.Semaphore) (uint32, vk.Result)
	present(imageIndex uint32, renderComplete vk.Semaphore) vk.Result
}

type queuePresenter struct {
	device    *Device
	queue     *Queue
	swapchain vk.Swapchain
}

func (p *queuePresenter) acquire(imageAcquired vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(p.device.VKDevice, p.swapchain, vk.MaxUint64, imageAcquired, vk.NullFence, &index)
	return index, res
}

func (p *queuePresenter) present(imageIndex uint32, renderComplete vk.Semaphore) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{p.swapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.QueuePresent(p.queue.VKQueue, &presentInfo)
}

// frameFence is what WaitNextFrame needs of the slot fence
type frameFence interface {
	Wait() error
	Reset() error
}

// Frame is the per slot state of a frame in flight
type Frame struct {
	CommandBuffer  *CommandBuffer
	Fence          *Fence
	ImageAcquired  vk.Semaphore
	RenderComplete vk.Semaphore

	sync frameFence
}

func (f *Frame) destroy(d *Device) {
	if f.CommandBuffer != nil {
		f.CommandBuffer.Pool.FreeBuffer(f.CommandBuffer)
	}
	if f.Fence != nil {
		f.Fence.Destroy()
	}
	d.VKDestroySemaphore(f.ImageAcquired)
	d.VKDestroySemaphore(f.RenderComplete)
}

type SwapchainCreateInfo struct {
	Width  uint32
	Height uint32
	// VSync presents in FIFO mode, otherwise mailbox is used when available
	VSync bool
}

// Swapchain paces rendering over FramesInFlight frame slots. A frame is
//
//	WaitNextFrame, record CurrentCommandBuffer, Submit, PresentImage
//
// and the slot only advances when the image was presented.
type Swapchain struct {
	ctx         *Context
	VKSwapchain vk.Swapchain
	Format      vk.Format
	ColorSpace  vk.ColorSpace
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	VSync       bool

	// Images are borrowed from the swapchain, only their views are owned
	Images []*Image
	Frames []Frame

	InflightIndex int
	ImageIndex    uint32

	presenter presenter
	log       *slog.Logger
}

// CreateSwapchain creates a swapchain on the surface of the context
func (c *Context) CreateSwapchain(info SwapchainCreateInfo) (*Swapchain, error) {
	if c.Surface == vk.NullSurface {
		return nil, errors.New("context has no surface")
	}
	s := &Swapchain{ctx: c, VSync: info.VSync, log: c.log}
	if err := s.Resize(info.Width, info.Height); err != nil {
		return nil, err
	}
	return s, nil
}

// chooseSurfaceFormat prefers B8G8R8A8Unorm and falls back to the first format
func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, errors.New("surface has no formats")
	}
	for _, f := range formats {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Unorm {
			return f, nil
		}
	}
	formats[0].Deref()
	return formats[0], nil
}

// choosePresentMode returns FIFO when vsync is requested or mailbox is not
// supported.
func choosePresentMode(modes VKPresentModes, vsync bool) vk.PresentMode {
	if !vsync && modes.Contains(vk.PresentModeMailbox) {
		return vk.PresentModeMailbox
	}
	return vk.PresentModeFifo
}

// swapchainExtent uses the surface extent unless the surface lets the
// swapchain decide.
func swapchainExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	caps.CurrentExtent.Deref()
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	clamp := func(v, lo, hi uint32) uint32 {
		if v < lo {
			return lo
		}
		if hi != 0 && v > hi {
			return hi
		}
		return v
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func swapchainImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := uint32(swapchainMinImageCount)
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount != 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// Resize recreates the swapchain, its image views and every frame slot.
func (s *Swapchain) Resize(width, height uint32) error {
	c := s.ctx
	if s.VKSwapchain != vk.NullSwapchain {
		if err := c.Device.WaitIdle(); err != nil {
			return err
		}
	}
	s.destroy()

	physical := c.PhysicalDevice
	formats, err := physical.GetSurfaceFormats(c.Surface)
	if err != nil {
		return err
	}
	format, err := chooseSurfaceFormat(formats)
	if err != nil {
		return err
	}
	modes, err := physical.GetSurfacePresentModes(c.Surface)
	if err != nil {
		return err
	}
	caps, err := physical.GetSurfaceCapabilities(c.Surface)
	if err != nil {
		return err
	}
	caps.Deref()

	s.Format = format.Format
	s.ColorSpace = format.ColorSpace
	s.PresentMode = choosePresentMode(modes, s.VSync)
	s.Extent = swapchainExtent(*caps, width, height)

	tq, err := c.GetThreadQueue(MainThread, QueueGeneral)
	if err != nil {
		return err
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          c.Surface,
		MinImageCount:    swapchainImageCount(*caps),
		ImageFormat:      s.Format,
		ImageColorSpace:  s.ColorSpace,
		ImageExtent:      s.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      s.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchain vk.Swapchain
	err = vkErr(vk.CreateSwapchain(c.Device.VKDevice, &createInfo, nil, &swapchain), "create swapchain")
	if err != nil {
		return err
	}
	s.VKSwapchain = swapchain
	s.presenter = &queuePresenter{device: c.Device, queue: tq.Queue, swapchain: swapchain}

	if err := s.createImages(); err != nil {
		s.destroy()
		return err
	}
	if err := s.createFrames(tq); err != nil {
		s.destroy()
		return err
	}

	s.InflightIndex = 0
	s.ImageIndex = 0
	s.log.Info("created swapchain", "width", s.Extent.Width, "height", s.Extent.Height,
		"images", len(s.Images), "vsync", s.VSync)
	return nil
}

func (s *Swapchain) createImages() error {
	d := s.ctx.Device
	var count uint32
	err := vkErr(vk.GetSwapchainImages(d.VKDevice, s.VKSwapchain, &count, nil), "get swapchain images")
	if err != nil {
		return err
	}
	images := make([]vk.Image, count)
	err = vkErr(vk.GetSwapchainImages(d.VKDevice, s.VKSwapchain, &count, images), "get swapchain images")
	if err != nil {
		return err
	}

	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	extent := vk.Extent3D{Width: s.Extent.Width, Height: s.Extent.Height, Depth: 1}
	for _, image := range images {
		view, err := d.CreateImageView(image, s.Format, vk.ImageViewType2d, vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		})
		if err != nil {
			return err
		}
		s.Images = append(s.Images, WrapImage(d, image, view, extent, s.Format, aspect))
	}
	return nil
}

func (s *Swapchain) createFrames(tq *ThreadQueue) error {
	d := s.ctx.Device
	buffers, err := tq.CommandPool.AllocateBuffers(FramesInFlight, QueueGeneral)
	if err != nil {
		return err
	}
	s.Frames = make([]Frame, FramesInFlight)
	for i := range s.Frames {
		f := &s.Frames[i]
		f.CommandBuffer = buffers[i]
		if f.Fence, err = d.CreateFence(FenceCreateInfo{Signaled: true}); err != nil {
			return err
		}
		f.sync = f.Fence
		if f.ImageAcquired, err = d.VKCreateSemaphore(); err != nil {
			return err
		}
		if f.RenderComplete, err = d.VKCreateSemaphore(); err != nil {
			return err
		}
	}
	return nil
}

// WaitNextFrame waits until the current slot is free again and acquires the
// next image.
func (s *Swapchain) WaitNextFrame() error {
	f := s.CurrentFrame()
	if err := f.sync.Wait(); err != nil {
		return err
	}
	index, res := s.presenter.acquire(f.ImageAcquired)
	if res != vk.Success && res != vk.Suboptimal {
		return vkErr(res, "acquire next image")
	}
	s.ImageIndex = index
	s.Images[index].Layout = vk.ImageLayoutUndefined
	return f.sync.Reset()
}

func (s *Swapchain) CurrentFrame() *Frame {
	return &s.Frames[s.InflightIndex]
}

func (s *Swapchain) CurrentCommandBuffer() *CommandBuffer {
	return s.CurrentFrame().CommandBuffer
}

// CurrentImage is the image acquired by the last WaitNextFrame
func (s *Swapchain) CurrentImage() *Image {
	return s.Images[s.ImageIndex]
}

// BeginCommandBuffer resets and begins the command buffer of the current slot
func (s *Swapchain) BeginCommandBuffer() (*CommandBuffer, error) {
	cb := s.CurrentCommandBuffer()
	if err := cb.Reset(); err != nil {
		return nil, err
	}
	if err := cb.Begin(); err != nil {
		return nil, err
	}
	return cb, nil
}

// Submit submits the current command buffer. It waits for the acquired image
// before writing color and signals the slot fence once done.
func (s *Swapchain) Submit() error {
	f := s.CurrentFrame()
	return s.ctx.Submit(MainThread, SubmitInfo{
		CommandBuffers:  []*CommandBuffer{f.CommandBuffer},
		WaitSemaphore:   f.ImageAcquired,
		WaitStage:       vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SignalSemaphore: f.RenderComplete,
		Fence:           f.Fence,
	})
}

// PresentImage presents the current image. A frame the presentation engine
// does not accept is dropped and the slot is reused.
func (s *Swapchain) PresentImage() error {
	f := s.CurrentFrame()
	res := s.presenter.present(s.ImageIndex, f.RenderComplete)
	switch res {
	case vk.Success:
		s.InflightIndex = (s.InflightIndex + 1) % len(s.Frames)
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		s.log.Debug("frame dropped", slog.Int("result", int(res)))
		return nil
	}
	return vkErr(res, "queue present")
}

func (s *Swapchain) destroy() {
	d := s.ctx.Device
	for i := range s.Frames {
		s.Frames[i].destroy(d)
	}
	s.Frames = nil
	for _, img := range s.Images {
		img.Destroy()
	}
	s.Images = nil
	if s.VKSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(d.VKDevice, s.VKSwapchain, nil)
		s.VKSwapchain = vk.NullSwapchain
	}
}

func (s *Swapchain) Destroy() {
	if err := s.ctx.Device.WaitIdle(); err != nil {
		s.log.Warn("wait idle before destroying swapchain", "error", err)
	}
	s.destroy()
}
