package vulkaninja

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffers describe a sequence of commands that will be executed
// upon being sent to a device queue. Not all available vulkan commands
// are wrapped by this package. It is expected that the calling application
// must call the native vulkan command APIs.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
	Pool            *CommandPool
	// Class is the queue class the buffer has to be submitted to
	Class QueueClass

	procs ExtensionProcs
}

// ResetAndRelease will reset this commandbuffer and release the associated resources
func (c *CommandBuffer) ResetAndRelease() error {
	return vkErr(vk.ResetCommandBuffer(c.VKCommandBuffer, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)), "reset command buffer")
}

// Reset this command buffer
func (c *CommandBuffer) Reset() error {
	return vkErr(vk.ResetCommandBuffer(c.VKCommandBuffer, 0), "reset command buffer")
}

// VK is a utility function for accessing the native vulkan command buffer
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// Begin capturing work for this command buffer
func (c *CommandBuffer) Begin() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = 0
	return vkErr(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo), "begin command buffer")
}

// BeginOneTime begins capturing work for this command buffer, with the stipulation that it will only be used once (instead of put back in the pool of command buffers)
func (c *CommandBuffer) BeginOneTime() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	return vkErr(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo), "begin command buffer")
}

// End describing work for this command buffer
func (c *CommandBuffer) End() error {
	return vkErr(vk.EndCommandBuffer(c.VKCommandBuffer), "end command buffer")
}

func (c *CommandBuffer) BindPipeline(p *Pipeline) {
	vk.CmdBindPipeline(c.VKCommandBuffer, p.BindPoint, p.VKPipeline)
}

// BindDescriptorSet binds set 0 of the pipeline layout
func (c *CommandBuffer) BindDescriptorSet(p *Pipeline, set *DescriptorSet) {
	if p.setLayout != set.VKDescriptorSetLayout() {
		Logger().Warn("descriptor set was grown after the pipeline was built", "kind", p.Kind.String())
	}
	vk.CmdBindDescriptorSets(c.VKCommandBuffer, p.BindPoint, p.Layout.VKPipelineLayout,
		0, 1, []vk.DescriptorSet{set.VKDescriptorSet}, 0, nil)
}

// PushConstants uploads data to the push constant range of the pipeline.
// data may not exceed the push size the pipeline was created with.
func (c *CommandBuffer) PushConstants(p *Pipeline, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if uint32(len(data)) > p.PushSize {
		return errors.Errorf("push constants of %d bytes exceed the pipeline push size %d", len(data), p.PushSize)
	}
	vk.CmdPushConstants(c.VKCommandBuffer, p.Layout.VKPipelineLayout, p.StageFlags,
		0, uint32(len(data)), unsafe.Pointer(&data[0]))
	return nil
}

// PushValue pushes a single plain value as the pipeline's push constants
func PushValue[T any](c *CommandBuffer, p *Pipeline, v *T) error {
	return c.PushConstants(p, ToBytes(unsafe.Pointer(v), int(unsafe.Sizeof(*v))))
}

func (c *CommandBuffer) BindVertexBuffer(b *Buffer) {
	vk.CmdBindVertexBuffers(c.VKCommandBuffer, 0, 1, []vk.Buffer{b.VKBuffer}, []vk.DeviceSize{0})
}

func (c *CommandBuffer) BindIndexBuffer(b *Buffer, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(c.VKCommandBuffer, b.VKBuffer, 0, indexType)
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(c.VKCommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(c.VKCommandBuffer, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(c.VKCommandBuffer, x, y, z)
}

func (c *CommandBuffer) DrawMeshTasks(x, y, z uint32) error {
	if err := requireProcs(c.procs, "draw mesh tasks"); err != nil {
		return err
	}
	c.procs.CmdDrawMeshTasks(c.VKCommandBuffer, x, y, z)
	return nil
}

// TraceRays dispatches rays through the shader binding table of a ray
// tracing pipeline.
func (c *CommandBuffer) TraceRays(p *Pipeline, width, height, depth uint32) error {
	sbt, err := p.ShaderBindingTable()
	if err != nil {
		return err
	}
	if err := requireProcs(c.procs, "trace rays"); err != nil {
		return err
	}
	c.procs.CmdTraceRays(c.VKCommandBuffer, &sbt.Raygen, &sbt.Miss, &sbt.Hit, &sbt.Callable, width, height, depth)
	return nil
}

// SetViewport sets a viewport covering width x height with depth range [0, 1]
func (c *CommandBuffer) SetViewport(width, height float32) {
	vk.CmdSetViewport(c.VKCommandBuffer, 0, 1, []vk.Viewport{{
		Width:    width,
		Height:   height,
		MinDepth: 0,
		MaxDepth: 1,
	}})
}

func (c *CommandBuffer) SetScissor(width, height uint32) {
	vk.CmdSetScissor(c.VKCommandBuffer, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}})
}

func (c *CommandBuffer) SetLineWidth(width float32) {
	vk.CmdSetLineWidth(c.VKCommandBuffer, width)
}

func (c *CommandBuffer) SetCullMode(mode vk.CullModeFlags) error {
	if err := requireProcs(c.procs, "set cull mode"); err != nil {
		return err
	}
	c.procs.CmdSetCullMode(c.VKCommandBuffer, mode)
	return nil
}

func (c *CommandBuffer) SetFrontFace(face vk.FrontFace) error {
	if err := requireProcs(c.procs, "set front face"); err != nil {
		return err
	}
	c.procs.CmdSetFrontFace(c.VKCommandBuffer, face)
	return nil
}

func (c *CommandBuffer) SetPrimitiveTopology(topology vk.PrimitiveTopology) error {
	if err := requireProcs(c.procs, "set primitive topology"); err != nil {
		return err
	}
	c.procs.CmdSetPrimitiveTopology(c.VKCommandBuffer, topology)
	return nil
}

func (c *CommandBuffer) SetPolygonMode(mode vk.PolygonMode) error {
	if err := requireProcs(c.procs, "set polygon mode"); err != nil {
		return err
	}
	c.procs.CmdSetPolygonMode(c.VKCommandBuffer, mode)
	return nil
}

// BeginRenderPass starts the render pass of target covering its whole extent.
// Clear values are only used by targets created with Clear set.
func (c *CommandBuffer) BeginRenderPass(target *RenderTarget, clearColor [4]float32, clearDepth float32) {
	clearValues := make([]vk.ClearValue, 0, len(target.Colors)+1)
	for range target.Colors {
		var cv vk.ClearValue
		cv.SetColor(clearColor[:])
		clearValues = append(clearValues, cv)
	}
	if target.Depth != nil {
		var cv vk.ClearValue
		cv.SetDepthStencil(clearDepth, 0)
		clearValues = append(clearValues, cv)
	}

	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  target.RenderPass.VKRenderPass,
		Framebuffer: target.VKFramebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: target.Extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.VKCommandBuffer, &renderPassBeginInfo, vk.SubpassContentsInline)
}

// EndRenderPass ends the render pass of target. The attachments are left in
// the final layouts of the render pass.
func (c *CommandBuffer) EndRenderPass(target *RenderTarget) {
	vk.CmdEndRenderPass(c.VKCommandBuffer)
	for _, img := range target.Colors {
		img.Layout = target.RenderPass.FinalLayout
	}
	if target.Depth != nil {
		target.Depth.Layout = vk.ImageLayoutDepthStencilAttachmentOptimal
	}
}

// layoutAccess returns the accesses and pipeline stages an image in layout is
// used with. Both sides of a layout transition are derived from it.
func layoutAccess(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	case vk.ImageLayoutPresentSrc:
		return 0, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessFlags(vk.AccessTransferReadBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	case vk.ImageLayoutGeneral:
		return vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	}
	return vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
}

// transitionBarrier builds the barrier moving every subresource of img from
// its current layout to newLayout.
func transitionBarrier(img *Image, newLayout vk.ImageLayout) (vk.ImageMemoryBarrier, vk.PipelineStageFlags, vk.PipelineStageFlags) {
	srcAccess, srcStage := layoutAccess(img.Layout)
	dstAccess, dstStage := layoutAccess(newLayout)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           img.Layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.VKImage,
		SubresourceRange:    img.subresourceRange(),
	}
	return barrier, srcStage, dstStage
}

// TransitionLayout records a layout transition of the whole image and
// updates img.Layout.
func (c *CommandBuffer) TransitionLayout(img *Image, newLayout vk.ImageLayout) {
	barrier, src, dst := transitionBarrier(img, newLayout)
	c.ImageBarrier(barrier, src, dst)
	img.Layout = newLayout
}

func (c *CommandBuffer) ImageBarrier(barrier vk.ImageMemoryBarrier, src, dst vk.PipelineStageFlags) {
	vk.CmdPipelineBarrier(c.VKCommandBuffer, src, dst, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (c *CommandBuffer) MemoryBarrier(src, dst vk.PipelineStageFlags, srcAccess, dstAccess vk.AccessFlags) {
	vk.CmdPipelineBarrier(c.VKCommandBuffer, src, dst, vk.DependencyFlags(0), 1,
		[]vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: srcAccess,
			DstAccessMask: dstAccess,
		}}, 0, nil, 0, nil)
}

func (c *CommandBuffer) CopyBuffer(src, dst *Buffer, size uint64) {
	vk.CmdCopyBuffer(c.VKCommandBuffer, src.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

// CopyBufferData writes data into the staging buffer of b and records the
// copy to b. The staging buffer must not be reused before the commands ran.
func (c *CommandBuffer) CopyBufferData(b *Buffer, data []byte) error {
	staging, err := b.PrepareStagingBuffer()
	if err != nil {
		return err
	}
	if err := staging.Copy(data); err != nil {
		return err
	}
	c.CopyBuffer(staging, b, uint64(len(data)))
	return nil
}

// CopyBufferToImage copies tightly packed pixels into mip level 0. The image
// must be in the transfer destination layout.
func (c *CommandBuffer) CopyBufferToImage(src *Buffer, dst *Image) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     dst.Aspect,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     dst.LayerCount,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: dst.Extent,
	}
	vk.CmdCopyBufferToImage(c.VKCommandBuffer, src.VKBuffer, dst.VKImage, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// CopyImage copies mip level 0 of src into dst. Both images keep their
// layouts, which must allow transfers.
func (c *CommandBuffer) CopyImage(src, dst *Image) {
	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: src.Aspect, LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: dst.Aspect, LayerCount: 1},
		Extent:         src.Extent,
	}
	vk.CmdCopyImage(c.VKCommandBuffer, src.VKImage, src.Layout, dst.VKImage, dst.Layout, 1, []vk.ImageCopy{region})
}

// BlitImage scales mip level 0 of src onto mip level 0 of dst
func (c *CommandBuffer) BlitImage(src, dst *Image, filter vk.Filter) {
	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: src.Aspect, LayerCount: 1},
		SrcOffsets:     [2]vk.Offset3D{{}, extentOffset(src.Extent)},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: dst.Aspect, LayerCount: 1},
		DstOffsets:     [2]vk.Offset3D{{}, extentOffset(dst.Extent)},
	}
	vk.CmdBlitImage(c.VKCommandBuffer, src.VKImage, src.Layout, dst.VKImage, dst.Layout, 1, []vk.ImageBlit{blit}, filter)
}

func extentOffset(e vk.Extent3D) vk.Offset3D {
	return vk.Offset3D{X: int32(e.Width), Y: int32(e.Height), Z: int32(e.Depth)}
}

// ClearColorImage fills every level of img with color. The image is moved to
// the transfer destination layout first.
func (c *CommandBuffer) ClearColorImage(img *Image, color [4]float32) {
	c.TransitionLayout(img, vk.ImageLayoutTransferDstOptimal)
	var value vk.ClearColorValue
	floats := (*[4]float32)(unsafe.Pointer(&value))
	*floats = color
	vk.CmdClearColorImage(c.VKCommandBuffer, img.VKImage, vk.ImageLayoutTransferDstOptimal, &value, 1,
		[]vk.ImageSubresourceRange{img.subresourceRange()})
}

// mipBlits returns the blit regions that fill level i from level i-1, for
// i in [1, levels).
func mipBlits(extent vk.Extent3D, levels uint32, aspect vk.ImageAspectFlags) []vk.ImageBlit {
	if levels < 2 {
		return nil
	}
	ret := make([]vk.ImageBlit, 0, levels-1)
	w, h := int32(extent.Width), int32(extent.Height)
	for i := uint32(1); i < levels; i++ {
		nw, nh := w, h
		if nw > 1 {
			nw /= 2
		}
		if nh > 1 {
			nh /= 2
		}
		ret = append(ret, vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: i - 1, LayerCount: 1},
			SrcOffsets:     [2]vk.Offset3D{{}, {X: w, Y: h, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: i, LayerCount: 1},
			DstOffsets:     [2]vk.Offset3D{{}, {X: nw, Y: nh, Z: 1}},
		})
		w, h = nw, nh
	}
	return ret
}

// GenerateMipmaps fills levels 1..n-1 from level 0 by successive blits and
// leaves the whole image in the shader read only layout. Level 0 must
// already hold the pixels.
func (c *CommandBuffer) GenerateMipmaps(img *Image) error {
	if img.MipLevels < 2 {
		return errors.Errorf("image %q has a single mip level", img.Name)
	}

	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(img.Device.PhysicalDevice.VKPhysicalDevice, img.VKFormat, &props)
	props.Deref()

	blitBits := vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit | vk.FormatFeatureBlitDstBit)
	if props.OptimalTilingFeatures&blitBits != blitBits {
		return errors.Errorf("format %d of image %q does not support blitting", img.VKFormat, img.Name)
	}
	filter := vk.FilterLinear
	if IsDepthFormat(img.VKFormat) ||
		props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) == 0 {
		filter = vk.FilterNearest
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.VKImage,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: img.Aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	transfer := vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	oldLayout := img.Layout

	for i, blit := range mipBlits(img.Extent, img.MipLevels, img.Aspect) {
		level := uint32(i) + 1

		// level 0 is still in the layout the image was left in
		barrier.SubresourceRange.BaseMipLevel = level - 1
		barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
		if level == 1 {
			barrier.OldLayout = oldLayout
		}
		barrier.NewLayout = vk.ImageLayoutTransferSrcOptimal
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		c.ImageBarrier(barrier, transfer, transfer)

		barrier.SubresourceRange.BaseMipLevel = level
		barrier.OldLayout = vk.ImageLayoutUndefined
		barrier.NewLayout = vk.ImageLayoutTransferDstOptimal
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		c.ImageBarrier(barrier, transfer, transfer)

		vk.CmdBlitImage(c.VKCommandBuffer, img.VKImage, vk.ImageLayoutTransferSrcOptimal,
			img.VKImage, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, filter)
	}

	all := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)

	barrier.SubresourceRange.BaseMipLevel = 0
	barrier.SubresourceRange.LevelCount = img.MipLevels - 1
	barrier.OldLayout = vk.ImageLayoutTransferSrcOptimal
	barrier.NewLayout = vk.ImageLayoutShaderReadOnlyOptimal
	barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
	barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
	c.ImageBarrier(barrier, transfer, all)

	barrier.SubresourceRange.BaseMipLevel = img.MipLevels - 1
	barrier.SubresourceRange.LevelCount = 1
	barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
	barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	c.ImageBarrier(barrier, transfer, all)

	img.Layout = vk.ImageLayoutShaderReadOnlyOptimal
	return nil
}
