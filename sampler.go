package vulkaninja

import (
	vk "github.com/vulkan-go/vulkan"
)

type SamplerCreateInfo struct {
	Filter      vk.Filter
	AddressMode vk.SamplerAddressMode
	MipmapMode  vk.SamplerMipmapMode
}

// DefaultSamplerCreateInfo is a linear, repeating sampler
func DefaultSamplerCreateInfo() SamplerCreateInfo {
	return SamplerCreateInfo{
		Filter:      vk.FilterLinear,
		AddressMode: vk.SamplerAddressModeRepeat,
		MipmapMode:  vk.SamplerMipmapModeLinear,
	}
}

type Sampler struct {
	Device    *Device
	VKSampler vk.Sampler
}

// CreateSampler creates a sampler able to read mipLevels levels
func (d *Device) CreateSampler(info SamplerCreateInfo, mipLevels uint32) (*Sampler, error) {
	var maxLod float32
	if mipLevels > 1 {
		maxLod = float32(mipLevels)
	}
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               info.Filter,
		MinFilter:               info.Filter,
		MipmapMode:              info.MipmapMode,
		AddressModeU:            info.AddressMode,
		AddressModeV:            info.AddressMode,
		AddressModeW:            info.AddressMode,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  maxLod,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}

	var sampler vk.Sampler
	err := vkErr(vk.CreateSampler(d.VKDevice, &samplerInfo, nil, &sampler), "create sampler")
	if err != nil {
		return nil, err
	}
	return &Sampler{Device: d, VKSampler: sampler}, nil
}

func (s *Sampler) Destroy() {
	vk.DestroySampler(s.Device.VKDevice, s.VKSampler, nil)
}
