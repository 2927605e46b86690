package vulkaninja

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// mappable is the memory behind a Buffer
type mappable interface {
	Map() ([]byte, error)
	Unmap()
	Destroy()
	HostVisible() bool
}

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the host or on the device
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	Properties     vk.MemoryPropertyFlags
	MapCount       int32
	Ptr            unsafe.Pointer
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return atomic.LoadInt32(&d.MapCount) > 0
}

// HostVisible returns true if the memory can be mapped
func (d *DeviceMemory) HostVisible() bool {
	return d.Properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

// Destroy destroys this memory
func (d *DeviceMemory) Destroy() {
	if d.IsMapped() {
		d.Unmap()
	}
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}

// MapCopyUnmap will map this memory, copy the specified data to it and unmap
func (d *DeviceMemory) MapCopyUnmap(data []byte) error {
	pm, err := d.Map()
	if err != nil {
		return err
	}
	copy(pm, data)
	d.Unmap()
	return nil
}

// Map will map the entirety of this memory. The memory stays mapped until
// Unmap, repeated calls return the same bytes.
func (d *DeviceMemory) Map() ([]byte, error) {
	if !d.HostVisible() {
		return nil, errors.WithStack(ErrNotHostVisible)
	}
	if d.Ptr == nil {
		var res unsafe.Pointer
		err := vkErr(vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, 0, vk.DeviceSize(vk.WholeSize), 0, &res), "map memory")
		if err != nil {
			return nil, err
		}
		d.Ptr = res
		atomic.AddInt32(&d.MapCount, 1)
	}
	return ToBytes(d.Ptr, int(d.Size)), nil
}

// Unmap this memory
func (d *DeviceMemory) Unmap() {
	if d.Ptr == nil {
		return
	}
	d.Ptr = nil
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
	atomic.AddInt32(&d.MapCount, -1)
}
