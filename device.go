package vulkaninja

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device
}

func (d *Device) Destroy() {
	vk.DestroyDevice(d.VKDevice, nil)
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

func (d *Device) WaitIdle() error {
	return vkErr(vk.DeviceWaitIdle(d.VKDevice), "device wait idle")
}

// GetQueue returns the queue with the given index inside the family
func (d *Device) GetQueue(qf *QueueFamily, index int) *Queue {
	var vkq vk.Queue

	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), uint32(index), &vkq)

	return &Queue{
		Device:      d,
		QueueFamily: qf,
		Index:       index,
		VKQueue:     vkq,
	}
}

type CreateDeviceOptions struct {
	EnabledExtensions []string
	EnabledLayers     []string
	Features          *vk.PhysicalDeviceFeatures
	// Next is chained into VkDeviceCreateInfo, feature structures of
	// extensions go here
	Next unsafe.Pointer
}

// CreateLogicalDevice creates a device exposing every hardware queue of each
// selected family.
func (p *PhysicalDevice) CreateLogicalDevice(sel QueueSelection, options *CreateDeviceOptions) (*Device, error) {
	classes := sel.Classes()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, 0, len(classes))
	for _, c := range classes {
		q := sel[c]
		priorities := make([]float32, q.QueueCount())
		for i := range priorities {
			priorities[i] = 1.0
		}
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(q.Index),
			QueueCount:       uint32(len(priorities)),
			PQueuePriorities: priorities,
		})
	}

	if options == nil {
		options = &CreateDeviceOptions{}
	}

	deviceFeatures := p.VKPhysicalDeviceFeatures()
	if options.Features != nil {
		deviceFeatures = *options.Features
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		PNext:                options.Next,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),
		PQueueCreateInfos:    queueCreateInfos,
		PEnabledFeatures:     []vk.PhysicalDeviceFeatures{deviceFeatures},
	}

	if len(options.EnabledExtensions) > 0 {
		deviceCreateInfo.EnabledExtensionCount = uint32(len(options.EnabledExtensions))
		deviceCreateInfo.PpEnabledExtensionNames = safeStrings(options.EnabledExtensions)
	}
	if len(options.EnabledLayers) > 0 {
		deviceCreateInfo.EnabledLayerCount = uint32(len(options.EnabledLayers))
		deviceCreateInfo.PpEnabledLayerNames = safeStrings(options.EnabledLayers)
	}

	var ldevice vk.Device

	err := vkErr(vk.CreateDevice(p.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice), "create device")
	if err != nil {
		return nil, err
	}

	return &Device{PhysicalDevice: p, VKDevice: ldevice}, nil
}

// Allocate allocates device memory from the first memory type matching the
// requirements and usage.
func (d *Device) Allocate(reqs vk.MemoryRequirements, properties vk.MemoryPropertyFlags, deviceAddress bool) (*DeviceMemory, error) {
	memoryTypeIndex, err := d.PhysicalDevice.FindMemoryType(reqs.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: memoryTypeIndex,
	}
	if deviceAddress {
		flagsInfo := vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(memoryAllocateDeviceAddressBit),
		}
		flagsInfo.PassRef()
		allocateInfo.PNext = unsafe.Pointer(flagsInfo.Ref())
	}

	var deviceMemory vk.DeviceMemory

	err = vk.Error(vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory))
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d bytes", uint64(reqs.Size))
	}

	return &DeviceMemory{
		Device:         d,
		VKDeviceMemory: deviceMemory,
		Size:           uint64(reqs.Size),
		Properties:     properties,
	}, nil
}

// memoryAllocateDeviceAddressBit is VK_MEMORY_ALLOCATE_DEVICE_ADDRESS_BIT, core in Vulkan 1.2.
const memoryAllocateDeviceAddressBit vk.MemoryAllocateFlagBits = 0x00000002
