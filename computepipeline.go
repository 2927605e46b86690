package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type ComputePipelineCreateInfo struct {
	DescriptorSet *DescriptorSet
	PushSize      uint32
	ComputeShader *Shader
}

func (c *Context) CreateComputePipeline(info ComputePipelineCreateInfo) (*Pipeline, error) {
	if info.ComputeShader == nil {
		return nil, errors.New("compute pipeline needs a compute shader")
	}

	p := newPipeline(c.Device, PipelineCompute, info.PushSize)
	return c.buildPipeline(p, info.DescriptorSet, func() error {
		var pipelineCreateInfo = vk.ComputePipelineCreateInfo{}
		pipelineCreateInfo.SType = vk.StructureTypeComputePipelineCreateInfo
		pipelineCreateInfo.Stage = info.ComputeShader.VKPipelineShaderStageCreateInfo()
		pipelineCreateInfo.Layout = p.Layout.VKPipelineLayout

		pipelines := make([]vk.Pipeline, 1)
		err := vkErr(vk.CreateComputePipelines(c.Device.VKDevice, c.pipelineCache(), 1,
			[]vk.ComputePipelineCreateInfo{pipelineCreateInfo}, nil, pipelines), "create compute pipeline")
		if err != nil {
			return err
		}
		p.VKPipeline = pipelines[0]
		return nil
	})
}
