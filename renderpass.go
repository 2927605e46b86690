package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// RenderPassCreateInfo describes a single subpass render pass over a list of
// color attachments and an optional depth attachment.
type RenderPassCreateInfo struct {
	ColorFormats []vk.Format
	// DepthFormat is vk.FormatUndefined when there is no depth attachment
	DepthFormat vk.Format

	// Clear clears the attachments on load. Otherwise color contents are
	// kept and the images must be in InitialLayout.
	Clear         bool
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
}

// RenderPass is a render pass whose attachments are known by format only.
// Pipelines create one to describe the formats they draw to, render targets
// create one to begin rendering.
type RenderPass struct {
	Device       *Device
	VKRenderPass vk.RenderPass
	ColorFormats []vk.Format
	DepthFormat  vk.Format
	FinalLayout  vk.ImageLayout
}

func (info *RenderPassCreateInfo) attachments() []vk.AttachmentDescription {
	loadOp, initial := vk.AttachmentLoadOpClear, vk.ImageLayoutUndefined
	if !info.Clear {
		loadOp, initial = vk.AttachmentLoadOpLoad, info.InitialLayout
	}
	final := info.FinalLayout
	if final == vk.ImageLayoutUndefined {
		final = vk.ImageLayoutColorAttachmentOptimal
	}

	ret := make([]vk.AttachmentDescription, 0, len(info.ColorFormats)+1)
	for _, f := range info.ColorFormats {
		ret = append(ret, vk.AttachmentDescription{
			Format:         f,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  initial,
			FinalLayout:    final,
		})
	}
	if info.DepthFormat != vk.FormatUndefined {
		ret = append(ret, vk.AttachmentDescription{
			Format:         info.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
	}
	return ret
}

func (d *Device) CreateRenderPass(info RenderPassCreateInfo) (*RenderPass, error) {
	if len(info.ColorFormats) == 0 && info.DepthFormat == vk.FormatUndefined {
		return nil, errors.New("render pass without attachments")
	}
	attachmentDescriptions := info.attachments()

	colorAttachments := make([]vk.AttachmentReference, len(info.ColorFormats))
	for i := range colorAttachments {
		colorAttachments[i] = vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachments)),
		PColorAttachments:    colorAttachments,
	}
	if info.DepthFormat != vk.FormatUndefined {
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(colorAttachments)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit |
			vk.AccessDepthStencilAttachmentWriteBit),
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	err := vkErr(vk.CreateRenderPass(d.VKDevice, &renderPassCreateInfo, nil, &renderPass), "create render pass")
	if err != nil {
		return nil, err
	}

	return &RenderPass{
		Device:       d,
		VKRenderPass: renderPass,
		ColorFormats: info.ColorFormats,
		DepthFormat:  info.DepthFormat,
		FinalLayout:  attachmentDescriptions[0].FinalLayout,
	}, nil
}

func (r *RenderPass) Destroy() {
	vk.DestroyRenderPass(r.Device.VKDevice, r.VKRenderPass, nil)
}

type RenderTargetCreateInfo struct {
	Colors []*Image
	Depth  *Image

	Clear bool
	// InitialLayout is the layout the color images are in whenever the
	// target is used without Clear. It defaults to their current layout.
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
}

// RenderTarget is a framebuffer over a set of images and the render pass used
// to draw into them. All images must have the same extent.
type RenderTarget struct {
	RenderPass    *RenderPass
	VKFramebuffer vk.Framebuffer
	Extent        vk.Extent2D
	Colors        []*Image
	Depth         *Image
}

func (d *Device) CreateRenderTarget(info RenderTargetCreateInfo) (*RenderTarget, error) {
	var first *Image
	if len(info.Colors) > 0 {
		first = info.Colors[0]
	} else if info.Depth != nil {
		first = info.Depth
	} else {
		return nil, errors.New("render target without images")
	}

	rpInfo := RenderPassCreateInfo{
		Clear:         info.Clear,
		InitialLayout: info.InitialLayout,
		FinalLayout:   info.FinalLayout,
	}
	if rpInfo.InitialLayout == vk.ImageLayoutUndefined {
		rpInfo.InitialLayout = first.Layout
	}
	views := make([]vk.ImageView, 0, len(info.Colors)+1)
	for _, img := range info.Colors {
		if img.View == nil {
			return nil, errors.Errorf("image %q has no view", img.Name)
		}
		rpInfo.ColorFormats = append(rpInfo.ColorFormats, img.VKFormat)
		views = append(views, img.View.VKImageView)
	}
	if info.Depth != nil {
		if info.Depth.View == nil {
			return nil, errors.Errorf("image %q has no view", info.Depth.Name)
		}
		rpInfo.DepthFormat = info.Depth.VKFormat
		views = append(views, info.Depth.View.VKImageView)
	}

	renderPass, err := d.CreateRenderPass(rpInfo)
	if err != nil {
		return nil, err
	}

	extent := vk.Extent2D{Width: first.Extent.Width, Height: first.Extent.Height}
	fbCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.VKRenderPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	err = vkErr(vk.CreateFramebuffer(d.VKDevice, &fbCreateInfo, nil, &framebuffer), "create framebuffer")
	if err != nil {
		renderPass.Destroy()
		return nil, err
	}

	return &RenderTarget{
		RenderPass:    renderPass,
		VKFramebuffer: framebuffer,
		Extent:        extent,
		Colors:        info.Colors,
		Depth:         info.Depth,
	}, nil
}

func (r *RenderTarget) Destroy() {
	vk.DestroyFramebuffer(r.RenderPass.Device.VKDevice, r.VKFramebuffer, nil)
	r.RenderPass.Destroy()
}
