package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type GraphicsPipelineCreateInfo struct {
	DescriptorSet *DescriptorSet
	PushSize      uint32

	VertexShader   *Shader
	FragmentShader *Shader

	// VertexStride is 0 for pipelines without vertex input
	VertexStride uint32
	// VertexAttributes are bound at locations 0..n-1 of binding 0, packed in order
	VertexAttributes []vk.Format

	ColorFormats []vk.Format
	DepthFormat  vk.Format

	RasterState
}

// FormatSize returns the size in bytes of one element of a vertex attribute
// or texel format. Unknown formats have size 0.
func FormatSize(f vk.Format) uint32 {
	switch f {
	case vk.FormatR8Unorm, vk.FormatR8Snorm, vk.FormatR8Uint, vk.FormatR8Sint:
		return 1
	case vk.FormatR8g8Unorm, vk.FormatR16Sfloat, vk.FormatR16Uint, vk.FormatR16Sint, vk.FormatD16Unorm:
		return 2
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Srgb, vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb,
		vk.FormatR8g8b8a8Uint, vk.FormatR16g16Sfloat, vk.FormatR32Sfloat, vk.FormatR32Uint,
		vk.FormatR32Sint, vk.FormatD32Sfloat:
		return 4
	case vk.FormatR16g16b16a16Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32Uint, vk.FormatR32g32Sint:
		return 8
	case vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32Uint, vk.FormatR32g32b32Sint:
		return 12
	case vk.FormatR32g32b32a32Sfloat, vk.FormatR32g32b32a32Uint, vk.FormatR32g32b32a32Sint:
		return 16
	}
	return 0
}

// vertexAttributes lays the formats out back to back in binding 0
func vertexAttributes(formats []vk.Format) ([]vk.VertexInputAttributeDescription, error) {
	ret := make([]vk.VertexInputAttributeDescription, len(formats))
	var offset uint32
	for i, f := range formats {
		size := FormatSize(f)
		if size == 0 {
			return nil, errors.Errorf("vertex attribute %d has unsupported format %d", i, f)
		}
		ret[i] = vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  0,
			Format:   f,
			Offset:   offset,
		}
		offset += size
	}
	return ret, nil
}

func (c *Context) CreateGraphicsPipeline(info GraphicsPipelineCreateInfo) (*Pipeline, error) {
	if info.VertexShader == nil || info.FragmentShader == nil {
		return nil, errors.New("graphics pipeline needs a vertex and a fragment shader")
	}
	if err := c.checkDynamicStates(&info.RasterState, true); err != nil {
		return nil, err
	}

	var attributes []vk.VertexInputAttributeDescription
	var bindings []vk.VertexInputBindingDescription
	if info.VertexStride != 0 {
		var err error
		if attributes, err = vertexAttributes(info.VertexAttributes); err != nil {
			return nil, err
		}
		bindings = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    info.VertexStride,
			InputRate: vk.VertexInputRateVertex,
		}}
	}

	p := newPipeline(c.Device, PipelineGraphics, info.PushSize)
	return c.buildPipeline(p, info.DescriptorSet, func() error {
		renderPass, err := c.Device.CreateRenderPass(RenderPassCreateInfo{
			ColorFormats: info.ColorFormats,
			DepthFormat:  info.DepthFormat,
			Clear:        true,
		})
		if err != nil {
			return err
		}
		p.RenderPass = renderPass

		var vertexInputState = vk.PipelineVertexInputStateCreateInfo{}
		vertexInputState.SType = vk.StructureTypePipelineVertexInputStateCreateInfo
		vertexInputState.VertexBindingDescriptionCount = uint32(len(bindings))
		vertexInputState.PVertexBindingDescriptions = bindings
		vertexInputState.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInputState.PVertexAttributeDescriptions = attributes

		var inputAssemblyState = vk.PipelineInputAssemblyStateCreateInfo{}
		inputAssemblyState.SType = vk.StructureTypePipelineInputAssemblyStateCreateInfo
		inputAssemblyState.Topology = info.Topology.Or(vk.PrimitiveTopologyTriangleList)
		inputAssemblyState.PrimitiveRestartEnable = vk.False

		states := newGraphicsStates(&info.RasterState, len(info.ColorFormats), true)
		p.DynamicStates = states.dynamicStates

		shaderStages := []vk.PipelineShaderStageCreateInfo{
			info.VertexShader.VKPipelineShaderStageCreateInfo(),
			info.FragmentShader.VKPipelineShaderStageCreateInfo(),
		}

		return c.createGraphics(p, vk.GraphicsPipelineCreateInfo{
			StageCount:          uint32(len(shaderStages)),
			PStages:             shaderStages,
			PVertexInputState:   &vertexInputState,
			PInputAssemblyState: &inputAssemblyState,
			PViewportState:      &states.viewport,
			PRasterizationState: &states.raster,
			PMultisampleState:   &states.multisample,
			PDepthStencilState:  &states.depthStencil,
			PColorBlendState:    &states.colorBlend,
			PDynamicState:       &states.dynamic,
		})
	})
}
