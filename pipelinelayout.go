package vulkaninja

import (
	vk "github.com/vulkan-go/vulkan"
)

type PipelineLayout struct {
	Device           *Device
	VKPipelineLayout vk.PipelineLayout
}

func (p *PipelineLayout) Destroy() {
	vk.DestroyPipelineLayout(p.Device.VKDevice, p.VKPipelineLayout, nil)
}

// pushConstantRanges returns the single range at offset 0, or nothing when
// size is 0.
func pushConstantRanges(size uint32, stages vk.ShaderStageFlags) []vk.PushConstantRange {
	if size == 0 {
		return nil
	}
	return []vk.PushConstantRange{{
		StageFlags: stages,
		Offset:     0,
		Size:       size,
	}}
}

func (d *Device) CreatePipelineLayout(setLayouts []vk.DescriptorSetLayout, pushConstants []vk.PushConstantRange) (*PipelineLayout, error) {
	var pipelineLayoutCreateInfo = vk.PipelineLayoutCreateInfo{}
	pipelineLayoutCreateInfo.SType = vk.StructureTypePipelineLayoutCreateInfo
	pipelineLayoutCreateInfo.SetLayoutCount = uint32(len(setLayouts))
	pipelineLayoutCreateInfo.PSetLayouts = setLayouts
	pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(pushConstants))
	pipelineLayoutCreateInfo.PPushConstantRanges = pushConstants

	var pipelineLayout vk.PipelineLayout

	err := vkErr(vk.CreatePipelineLayout(d.VKDevice, &pipelineLayoutCreateInfo, nil, &pipelineLayout), "create pipeline layout")
	if err != nil {
		return nil, err
	}

	var ret PipelineLayout

	ret.VKPipelineLayout = pipelineLayout
	ret.Device = d

	return &ret, nil
}
