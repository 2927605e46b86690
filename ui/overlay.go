// Package ui draws an imgui overlay on top of a rendered frame, using the
// frame's own command buffer.
package ui

import (
	_ "embed"
	"math"
	"unsafe"

	"github.com/inkyblackness/imgui-go"
	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
	"golang.org/x/exp/slog"

	"github.com/zzxzzk115/vulkaninja"
	"github.com/zzxzzk115/vulkaninja/shaderc"
	"github.com/zzxzzk115/vulkaninja/window"
)

//go:embed overlay.wgsl
var overlayShader string

type Config struct {
	Style Style `toml:"style"`
	// FontFile replaces the default font when set
	FontFile string  `toml:"font_file"`
	FontSize float32 `toml:"font_size"`
}

type frameBuffers struct {
	vertex *vulkaninja.Buffer
	index  *vulkaninja.Buffer
}

// Overlay owns an imgui context and the pipeline drawing it. It is fed with
// input through Attach and drawn once per frame between NewFrame and Render.
type Overlay struct {
	ctx    *vulkaninja.Context
	imgui  *imgui.Context
	io     imgui.IO
	format vk.Format

	// display is the size given to imgui, projected the size the uniform
	// was written for
	display   imgui.Vec2
	projected imgui.Vec2

	vertexShader   *vulkaninja.Shader
	fragmentShader *vulkaninja.Shader
	set            *vulkaninja.DescriptorSet
	pipeline       *vulkaninja.Pipeline
	font           *vulkaninja.Image
	uniform        *vulkaninja.Buffer

	frames  []frameBuffers
	targets map[vk.Image]*vulkaninja.RenderTarget

	window           *window.Window
	mouseJustPressed [3]bool
	log              *slog.Logger
}

// New creates an overlay drawing into color images of format
func New(ctx *vulkaninja.Context, format vk.Format, cfg Config) (*Overlay, error) {
	o := &Overlay{
		ctx:     ctx,
		format:  format,
		frames:  make([]frameBuffers, vulkaninja.FramesInFlight),
		targets: make(map[vk.Image]*vulkaninja.RenderTarget),
		log:     vulkaninja.Logger().With("component", "ui"),
	}
	o.imgui = imgui.CreateContext(nil)
	o.io = imgui.CurrentIO()
	applyStyle(cfg.Style)
	o.setKeyMapping()

	if cfg.FontFile != "" {
		size := cfg.FontSize
		if size == 0 {
			size = 16
		}
		o.io.Fonts().AddFontFromFileTTF(cfg.FontFile, size)
	}

	if err := o.init(); err != nil {
		o.Destroy()
		return nil, err
	}
	return o, nil
}

func (o *Overlay) init() error {
	var err error
	o.vertexShader, err = shaderc.CreateShader(o.ctx.Device, shaderc.Source{
		Code:       overlayShader,
		Name:       "overlay.wgsl",
		Stage:      vk.ShaderStageVertexBit,
		EntryPoint: "vs_main",
	})
	if err != nil {
		return err
	}
	o.fragmentShader, err = shaderc.CreateShader(o.ctx.Device, shaderc.Source{
		Code:       overlayShader,
		Name:       "overlay.wgsl",
		Stage:      vk.ShaderStageFragmentBit,
		EntryPoint: "fs_main",
	})
	if err != nil {
		return err
	}

	o.uniform, err = o.ctx.CreateBuffer(vulkaninja.BufferCreateInfo{
		Usage:  vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		Memory: vulkaninja.MemoryHost,
		Size:   uint64(unsafe.Sizeof(lin.Mat4x4{})),
		Name:   "imgui projection",
	})
	if err != nil {
		return err
	}

	if err := o.createFontTexture(); err != nil {
		return err
	}
	if err := o.createDescriptorSet(); err != nil {
		return err
	}
	return o.createPipeline()
}

func (o *Overlay) createFontTexture() error {
	tex := o.io.Fonts().TextureDataRGBA32()
	size := tex.Width * tex.Height * 4
	pixels := &vulkaninja.Pixels{
		Data:     append([]byte(nil), vulkaninja.ToBytes(tex.Pixels, size)...),
		Width:    tex.Width,
		Height:   tex.Height,
		Channels: 4,
	}
	font, err := o.ctx.CreateImageFromPixels(pixels, vulkaninja.LoadImageCreateInfo{
		Sampler: vulkaninja.DefaultSamplerCreateInfo(),
	}, "imgui font")
	if err != nil {
		return err
	}
	o.font = font
	o.io.Fonts().SetTextureID(imgui.TextureID(1))
	return nil
}

func (o *Overlay) createDescriptorSet() error {
	set, err := o.ctx.CreateDescriptorSet(vulkaninja.DescriptorSetCreateInfo{
		Shaders: []*vulkaninja.Shader{o.vertexShader, o.fragmentShader},
	})
	if err != nil {
		return err
	}
	o.set = set

	// names depend on the compiler, the bindings are fixed by the shader
	for _, d := range set.Bindings() {
		switch d.Binding {
		case 0:
			err = set.SetBuffers(d.Name, o.uniform)
		case 1, 2:
			err = set.SetImages(d.Name, o.font)
		default:
			err = errors.Errorf("unexpected overlay binding %d", d.Binding)
		}
		if err != nil {
			return err
		}
	}
	return set.Update()
}

func (o *Overlay) createPipeline() error {
	vertexSize, posOffset, uvOffset, colOffset := imgui.VertexBufferLayout()
	attributes := []vk.Format{vk.FormatR32g32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR8g8b8a8Unorm}
	if posOffset != 0 || uvOffset != 8 || colOffset != 16 || vertexSize != 20 {
		return errors.Errorf("unsupported imgui vertex layout %d/%d/%d/%d", vertexSize, posOffset, uvOffset, colOffset)
	}

	pipeline, err := o.ctx.CreateGraphicsPipeline(vulkaninja.GraphicsPipelineCreateInfo{
		DescriptorSet:    o.set,
		VertexShader:     o.vertexShader,
		FragmentShader:   o.fragmentShader,
		VertexStride:     uint32(vertexSize),
		VertexAttributes: attributes,
		ColorFormats:     []vk.Format{o.format},
		RasterState: vulkaninja.RasterState{
			CullMode:      vulkaninja.Fixed(vk.CullModeFlags(vk.CullModeNone)),
			AlphaBlending: true,
		},
	})
	if err != nil {
		return err
	}
	o.pipeline = pipeline
	return nil
}

// Attach routes the input of w to the overlay and makes w skip the events the
// overlay wants.
func (o *Overlay) Attach(w *window.Window) {
	o.window = w
	w.Capture = o
	w.Raw = window.Handlers{
		Key:         o.keyChange,
		CharMods:    o.charChange,
		MouseButton: o.mouseButtonChange,
		Scroll:      o.scrollChange,
	}
}

func (o *Overlay) WantCaptureMouse() bool {
	return o.io.WantCaptureMouse()
}

func (o *Overlay) WantCaptureKeyboard() bool {
	return o.io.WantCaptureKeyboard()
}

func (o *Overlay) keyChange(key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Press {
		o.io.KeyPress(int(key))
	}
	if action == glfw.Release {
		o.io.KeyRelease(int(key))
	}

	// Modifiers are not reliable across systems
	o.io.KeyCtrl(int(glfw.KeyLeftControl), int(glfw.KeyRightControl))
	o.io.KeyShift(int(glfw.KeyLeftShift), int(glfw.KeyRightShift))
	o.io.KeyAlt(int(glfw.KeyLeftAlt), int(glfw.KeyRightAlt))
	o.io.KeySuper(int(glfw.KeyLeftSuper), int(glfw.KeyRightSuper))
}

func (o *Overlay) charChange(char rune, mods glfw.ModifierKey) {
	o.io.AddInputCharacters(string(char))
}

func (o *Overlay) mouseButtonChange(button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if i, ok := buttonIndex[button]; ok && action == glfw.Press {
		o.mouseJustPressed[i] = true
	}
}

func (o *Overlay) scrollChange(x, y float64) {
	o.io.AddMouseWheelDelta(float32(x), float32(y))
}

func (o *Overlay) setKeyMapping() {
	// imgui uses these indices to peek into the KeysDown array
	for k, v := range keyMap {
		o.io.KeyMap(k, int(v))
	}
}

var keyMap = map[int]glfw.Key{
	imgui.KeyTab:        glfw.KeyTab,
	imgui.KeyLeftArrow:  glfw.KeyLeft,
	imgui.KeyRightArrow: glfw.KeyRight,
	imgui.KeyUpArrow:    glfw.KeyUp,
	imgui.KeyDownArrow:  glfw.KeyDown,
	imgui.KeyPageUp:     glfw.KeyPageUp,
	imgui.KeyPageDown:   glfw.KeyPageDown,
	imgui.KeyHome:       glfw.KeyHome,
	imgui.KeyEnd:        glfw.KeyEnd,
	imgui.KeyInsert:     glfw.KeyInsert,
	imgui.KeyDelete:     glfw.KeyDelete,
	imgui.KeyBackspace:  glfw.KeyBackspace,
	imgui.KeySpace:      glfw.KeySpace,
	imgui.KeyEnter:      glfw.KeyEnter,
	imgui.KeyEscape:     glfw.KeyEscape,
	imgui.KeyA:          glfw.KeyA,
	imgui.KeyC:          glfw.KeyC,
	imgui.KeyV:          glfw.KeyV,
	imgui.KeyX:          glfw.KeyX,
	imgui.KeyY:          glfw.KeyY,
	imgui.KeyZ:          glfw.KeyZ,
}

var buttonIndex = map[glfw.MouseButton]int{
	glfw.MouseButton1: 0,
	glfw.MouseButton2: 1,
	glfw.MouseButton3: 2,
}

// NewFrame starts a new imgui frame. dt is the frame time in milliseconds.
func (o *Overlay) NewFrame(dt float32) {
	if dt <= 0 {
		dt = 1000.0 / 60
	}
	o.io.SetDeltaTime(dt / 1000)

	if w := o.window; w != nil {
		width, height := w.Size()
		o.display = imgui.Vec2{X: float32(width), Y: float32(height)}
		o.io.SetDisplaySize(o.display)

		if w.GLFW.GetAttrib(glfw.Focused) != 0 {
			pos := w.CursorPos()
			o.io.SetMousePosition(imgui.Vec2{X: pos[0], Y: pos[1]})
		} else {
			o.io.SetMousePosition(imgui.Vec2{X: -math.MaxFloat32, Y: -math.MaxFloat32})
		}
		for i, button := range []glfw.MouseButton{glfw.MouseButton1, glfw.MouseButton2, glfw.MouseButton3} {
			down := o.mouseJustPressed[i] || w.GLFW.GetMouseButton(button) == glfw.Press
			o.io.SetMouseButtonDown(i, down)
			o.mouseJustPressed[i] = false
		}
	}
	imgui.NewFrame()
}

// projection maps imgui display coordinates to clip space
func projection(width, height float32) lin.Mat4x4 {
	return lin.Mat4x4{
		{2 / width, 0, 0, 0},
		{0, 2 / height, 0, 0},
		{0, 0, 1, 0},
		{-1, -1, 0, 1},
	}
}

// scissorRect clips an imgui clip rectangle to the framebuffer. ok is false
// when nothing is left to draw.
func scissorRect(clip imgui.Vec4, width, height uint32) (vk.Rect2D, bool) {
	x0 := math.Max(float64(clip.X), 0)
	y0 := math.Max(float64(clip.Y), 0)
	x1 := math.Min(float64(clip.Z), float64(width))
	y1 := math.Min(float64(clip.W), float64(height))
	if x1 <= x0 || y1 <= y0 {
		return vk.Rect2D{}, false
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(x0), Y: int32(y0)},
		Extent: vk.Extent2D{Width: uint32(x1 - x0), Height: uint32(y1 - y0)},
	}, true
}

// grownSize returns a buffer size of at least need, doubling from have
func grownSize(have, need uint64) uint64 {
	if have >= need {
		return have
	}
	size := have
	if size < 64*1024 {
		size = 64 * 1024
	}
	for size < need {
		size *= 2
	}
	return size
}

func (o *Overlay) ensureBuffer(b **vulkaninja.Buffer, need uint64, usage vk.BufferUsageFlagBits, name string) error {
	var have uint64
	if *b != nil {
		have = (*b).Size
	}
	size := grownSize(have, need)
	if size == have {
		return nil
	}
	if *b != nil {
		(*b).Destroy()
		*b = nil
	}
	buf, err := o.ctx.CreateBuffer(vulkaninja.BufferCreateInfo{
		Usage:  vk.BufferUsageFlags(usage),
		Memory: vulkaninja.MemoryHost,
		Size:   size,
		Name:   name,
	})
	if err != nil {
		return err
	}
	*b = buf
	return nil
}

func (o *Overlay) target(img *vulkaninja.Image) (*vulkaninja.RenderTarget, error) {
	if t, ok := o.targets[img.VKImage]; ok {
		return t, nil
	}
	t, err := o.ctx.Device.CreateRenderTarget(vulkaninja.RenderTargetCreateInfo{
		Colors:        []*vulkaninja.Image{img},
		InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
	})
	if err != nil {
		return nil, err
	}
	o.targets[img.VKImage] = t
	return t, nil
}

// Render ends the imgui frame and records its draw commands into cb on top of
// img. frame selects the vertex buffers and must be the frame in flight index
// of cb. img is left in the color attachment layout.
func (o *Overlay) Render(cb *vulkaninja.CommandBuffer, img *vulkaninja.Image, frame int) error {
	imgui.Render()
	data := imgui.RenderedDrawData()
	if !data.Valid() {
		return nil
	}

	display := o.display
	if display.X <= 0 || display.Y <= 0 {
		return nil
	}
	if display != o.projected {
		proj := projection(display.X, display.Y)
		if err := vulkaninja.CopyValues(o.uniform, []lin.Mat4x4{proj}); err != nil {
			return err
		}
		o.projected = display
	}
	data.ScaleClipRects(imgui.Vec2{
		X: float32(img.Extent.Width) / display.X,
		Y: float32(img.Extent.Height) / display.Y,
	})

	lists := data.CommandLists()
	var vertexSize, indexSize uint64
	for _, list := range lists {
		_, vs := list.VertexBuffer()
		_, is := list.IndexBuffer()
		vertexSize += uint64(vs)
		indexSize += uint64(is)
	}
	if vertexSize == 0 || indexSize == 0 {
		return nil
	}

	fb := &o.frames[frame%len(o.frames)]
	if err := o.ensureBuffer(&fb.vertex, vertexSize, vk.BufferUsageVertexBufferBit, "imgui vertices"); err != nil {
		return err
	}
	if err := o.ensureBuffer(&fb.index, indexSize, vk.BufferUsageIndexBufferBit, "imgui indices"); err != nil {
		return err
	}
	vertices, err := fb.vertex.Map()
	if err != nil {
		return err
	}
	indices, err := fb.index.Map()
	if err != nil {
		return err
	}
	var vertexAt, indexAt int
	for _, list := range lists {
		vp, vs := list.VertexBuffer()
		ip, is := list.IndexBuffer()
		copy(vertices[vertexAt:], vulkaninja.ToBytes(vp, vs))
		copy(indices[indexAt:], vulkaninja.ToBytes(ip, is))
		vertexAt += vs
		indexAt += is
	}

	if img.Layout != vk.ImageLayoutColorAttachmentOptimal {
		cb.TransitionLayout(img, vk.ImageLayoutColorAttachmentOptimal)
	}
	target, err := o.target(img)
	if err != nil {
		return err
	}

	indexType := vk.IndexTypeUint16
	indexBytes := imgui.IndexBufferLayout()
	if indexBytes == 4 {
		indexType = vk.IndexTypeUint32
	}
	vertexBytes, _, _, _ := imgui.VertexBufferLayout()

	cb.BeginRenderPass(target, [4]float32{}, 1)
	cb.BindPipeline(o.pipeline)
	cb.BindDescriptorSet(o.pipeline, o.set)
	cb.SetViewport(float32(img.Extent.Width), float32(img.Extent.Height))
	cb.BindVertexBuffer(fb.vertex)
	cb.BindIndexBuffer(fb.index, indexType)

	var firstIndex, vertexOffset int
	for _, list := range lists {
		offset := firstIndex
		for _, cmd := range list.Commands() {
			if cmd.HasUserCallback() {
				cmd.CallUserCallback(list)
			} else if scissor, ok := scissorRect(cmd.ClipRect(), img.Extent.Width, img.Extent.Height); ok {
				vk.CmdSetScissor(cb.VK(), 0, 1, []vk.Rect2D{scissor})
				cb.DrawIndexed(uint32(cmd.ElementCount()), 1, uint32(offset), int32(vertexOffset), 0)
			}
			offset += cmd.ElementCount()
		}
		_, vs := list.VertexBuffer()
		_, is := list.IndexBuffer()
		firstIndex += is / indexBytes
		vertexOffset += vs / vertexBytes
	}
	cb.EndRenderPass(target)
	return nil
}

// ReleaseTargets drops the framebuffers of every image drawn to. It must be
// called when those images are destroyed, e.g. after a swapchain resize.
func (o *Overlay) ReleaseTargets() {
	for img, t := range o.targets {
		t.Destroy()
		delete(o.targets, img)
	}
}

// Destroy releases every GPU resource and the imgui context. The device must
// be idle.
func (o *Overlay) Destroy() {
	o.ReleaseTargets()
	for i := range o.frames {
		if b := o.frames[i].vertex; b != nil {
			b.Destroy()
		}
		if b := o.frames[i].index; b != nil {
			b.Destroy()
		}
	}
	o.frames = nil
	if o.pipeline != nil {
		o.pipeline.Destroy()
	}
	if o.set != nil {
		o.set.Destroy()
	}
	if o.font != nil {
		o.font.Destroy()
	}
	if o.uniform != nil {
		o.uniform.Destroy()
	}
	for _, sh := range []*vulkaninja.Shader{o.vertexShader, o.fragmentShader} {
		if sh != nil {
			sh.Destroy()
		}
	}
	if o.window != nil && o.window.Capture == o {
		o.window.Capture = nil
		o.window.Raw = window.Handlers{}
	}
	if o.imgui != nil {
		o.imgui.Destroy()
		o.imgui = nil
	}
	o.log.Debug("destroyed overlay")
}
