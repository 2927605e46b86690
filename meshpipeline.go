package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type MeshShaderPipelineCreateInfo struct {
	DescriptorSet *DescriptorSet
	PushSize      uint32

	// TaskShader is optional
	TaskShader     *Shader
	MeshShader     *Shader
	FragmentShader *Shader

	ColorFormats []vk.Format
	DepthFormat  vk.Format

	RasterState
}

func (info *MeshShaderPipelineCreateInfo) stages() []vk.PipelineShaderStageCreateInfo {
	ret := make([]vk.PipelineShaderStageCreateInfo, 0, 3)
	if info.TaskShader != nil {
		ret = append(ret, info.TaskShader.VKPipelineShaderStageCreateInfo())
	}
	return append(ret,
		info.MeshShader.VKPipelineShaderStageCreateInfo(),
		info.FragmentShader.VKPipelineShaderStageCreateInfo())
}

// CreateMeshShaderPipeline creates a graphics pipeline fed by task and mesh
// shaders instead of vertex input.
func (c *Context) CreateMeshShaderPipeline(info MeshShaderPipelineCreateInfo) (*Pipeline, error) {
	if info.MeshShader == nil || info.FragmentShader == nil {
		return nil, errors.New("mesh shader pipeline needs a mesh and a fragment shader")
	}
	if err := c.checkDynamicStates(&info.RasterState, false); err != nil {
		return nil, err
	}

	p := newPipeline(c.Device, PipelineMeshShader, info.PushSize)
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

		states := newGraphicsStates(&info.RasterState, len(info.ColorFormats), false)
		p.DynamicStates = states.dynamicStates

		shaderStages := info.stages()
		return c.createGraphics(p, vk.GraphicsPipelineCreateInfo{
			StageCount:          uint32(len(shaderStages)),
			PStages:             shaderStages,
			PViewportState:      &states.viewport,
			PRasterizationState: &states.raster,
			PMultisampleState:   &states.multisample,
			PDepthStencilState:  &states.depthStencil,
			PColorBlendState:    &states.colorBlend,
			PDynamicState:       &states.dynamic,
		})
	})
}
