package vulkaninja

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestMemoryUsage(t *testing.T) {
	assert.False(t, MemoryDevice.HostVisible())
	assert.True(t, MemoryHost.HostVisible())
	assert.True(t, MemoryStaging.HostVisible())
	assert.True(t, MemoryDeviceHost.HostVisible())
	assert.NotZero(t, MemoryDeviceHost.PropertyFlags()&vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	assert.Equal(t, "DeviceHost", MemoryDeviceHost.String())
}

func TestFindMemoryType(t *testing.T) {
	types := []vk.MemoryType{
		{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)},
		{PropertyFlags: MemoryHost.PropertyFlags()},
		{PropertyFlags: MemoryDeviceHost.PropertyFlags()},
	}

	i, err := findMemoryType(types, 0b111, MemoryHost.PropertyFlags())
	require.NoError(t, err)
	assert.EqualValues(t, 1, i)

	i, err = findMemoryType(types, 0b101, MemoryHost.PropertyFlags())
	require.NoError(t, err)
	assert.EqualValues(t, 2, i, "type 1 is excluded by the bits")

	_, err = findMemoryType(types, 0b001, MemoryHost.PropertyFlags())
	assert.True(t, errors.Is(err, ErrNoMemoryType))
}

func TestMissingExtensions(t *testing.T) {
	available := []string{"VK_KHR_swapchain", "VK_EXT_mesh_shader"}
	assert.Empty(t, missingExtensions(available, []string{"VK_KHR_swapchain\x00"}))
	assert.Equal(t, []string{"VK_KHR_ray_query"}, missingExtensions(available, []string{"VK_EXT_mesh_shader", "VK_KHR_ray_query"}))

	err := checkExtensions(available, []string{"VK_KHR_ray_query"})
	assert.True(t, errors.Is(err, ErrMissingExtension))
	assert.ErrorContains(t, err, "VK_KHR_ray_query")
}

func TestPickPhysicalDevice(t *testing.T) {
	_, err := pickPhysicalDevice(nil)
	assert.True(t, errors.Is(err, ErrNoPhysicalDevice))

	integrated := &PhysicalDevice{DeviceName: "igpu"}
	discrete := &PhysicalDevice{DeviceName: "dgpu"}
	discrete.VKPhysicalDeviceProperties.DeviceType = vk.PhysicalDeviceTypeDiscreteGpu

	d, err := pickPhysicalDevice([]*PhysicalDevice{integrated, discrete})
	require.NoError(t, err)
	assert.Same(t, discrete, d)

	d, err = pickPhysicalDevice([]*PhysicalDevice{integrated})
	require.NoError(t, err)
	assert.Same(t, integrated, d)
}
