package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// MemoryUsage names the memory property combinations resources are allocated with.
type MemoryUsage int

const (
	MemoryDevice MemoryUsage = iota
	MemoryHost
	MemoryDeviceHost
	MemoryStaging
)

// PropertyFlags returns the memory properties required for the usage
func (u MemoryUsage) PropertyFlags() vk.MemoryPropertyFlags {
	host := vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	switch u {
	case MemoryHost, MemoryStaging:
		return vk.MemoryPropertyFlags(host)
	case MemoryDeviceHost:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit | host)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}

// HostVisible reports whether memory of this usage can be mapped
func (u MemoryUsage) HostVisible() bool {
	return u.PropertyFlags()&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

func (u MemoryUsage) String() string {
	switch u {
	case MemoryHost:
		return "Host"
	case MemoryDeviceHost:
		return "DeviceHost"
	case MemoryStaging:
		return "Staging"
	}
	return "Device"
}

// bufferUsageShaderDeviceAddress is VK_BUFFER_USAGE_SHADER_DEVICE_ADDRESS_BIT,
// core in Vulkan 1.2.
const bufferUsageShaderDeviceAddress vk.BufferUsageFlagBits = 0x00020000

// Buffer usage presets.
var (
	BufferUsageVertex = vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit |
		vk.BufferUsageTransferDstBit | bufferUsageShaderDeviceAddress)
	BufferUsageIndex = vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit |
		vk.BufferUsageTransferDstBit | bufferUsageShaderDeviceAddress)
	BufferUsageUniform = vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit |
		vk.BufferUsageTransferDstBit)
	BufferUsageStorage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit |
		vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit | bufferUsageShaderDeviceAddress)
	BufferUsageStaging = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
)

// findMemoryType returns the first memory type allowed by typeBits whose
// properties contain every requested flag.
func findMemoryType(types []vk.MemoryType, typeBits uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	for i, mt := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) != 0 && mt.PropertyFlags&flags == flags {
			return uint32(i), nil
		}
	}
	return 0, errors.Wrapf(ErrNoMemoryType, "type bits %#x flags %#x", typeBits, uint32(flags))
}
