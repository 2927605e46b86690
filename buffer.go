package vulkaninja

import (
	gu "github.com/docker/go-units"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type BufferCreateInfo struct {
	Usage  vk.BufferUsageFlags
	Memory MemoryUsage
	Size   uint64
	// Name only shows up in logs
	Name string
}

// Buffer is a VkBuffer bound to its own allocation. Host visible buffers are
// mapped persistently on first use, device local buffers are written through
// a lazily created staging buffer.
type Buffer struct {
	Device   *Device
	VKBuffer vk.Buffer
	Size     uint64
	Usage    vk.BufferUsageFlags
	Memory   MemoryUsage
	Name     string

	ctx     *Context
	memory  mappable
	staging *Buffer
}

func (c *Context) CreateBuffer(info BufferCreateInfo) (*Buffer, error) {
	if info.Size == 0 {
		return nil, errors.Errorf("buffer %q has zero size", info.Name)
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       info.Usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	err := vkErr(vk.CreateBuffer(c.Device.VKDevice, &bufferCreateInfo, nil, &buffer), "create buffer")
	if err != nil {
		return nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(c.Device.VKDevice, buffer, &reqs)
	reqs.Deref()

	deviceAddress := info.Usage&vk.BufferUsageFlags(bufferUsageShaderDeviceAddress) != 0
	memory, err := c.Device.Allocate(reqs, info.Memory.PropertyFlags(), deviceAddress)
	if err != nil {
		vk.DestroyBuffer(c.Device.VKDevice, buffer, nil)
		return nil, errors.Wrapf(err, "buffer %q", info.Name)
	}

	err = vkErr(vk.BindBufferMemory(c.Device.VKDevice, buffer, memory.VKDeviceMemory, 0), "bind buffer memory")
	if err != nil {
		memory.Destroy()
		vk.DestroyBuffer(c.Device.VKDevice, buffer, nil)
		return nil, err
	}

	c.log.Debug("created buffer", "name", info.Name, "size", gu.BytesSize(float64(info.Size)),
		"memory", info.Memory.String())

	return &Buffer{
		Device:   c.Device,
		VKBuffer: buffer,
		Size:     info.Size,
		Usage:    info.Usage,
		Memory:   info.Memory,
		Name:     info.Name,
		ctx:      c,
		memory:   memory,
	}, nil
}

// HostVisible reports whether the buffer memory can be mapped
func (b *Buffer) HostVisible() bool {
	if b.memory != nil {
		return b.memory.HostVisible()
	}
	return b.Memory.HostVisible()
}

// Map returns the mapped contents of a host visible buffer. The mapping is
// kept until Unmap.
func (b *Buffer) Map() ([]byte, error) {
	if !b.HostVisible() {
		return nil, errors.Wrap(ErrNotHostVisible, b.Name)
	}
	data, err := b.memory.Map()
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > b.Size {
		data = data[:b.Size]
	}
	return data, nil
}

func (b *Buffer) Unmap() error {
	if !b.HostVisible() {
		return errors.Wrap(ErrNotHostVisible, b.Name)
	}
	b.memory.Unmap()
	return nil
}

// Copy writes data to the start of a host visible buffer
func (b *Buffer) Copy(data []byte) error {
	if !b.HostVisible() {
		return errors.Wrap(ErrNotHostVisible, b.Name)
	}
	if uint64(len(data)) > b.Size {
		return errors.Wrapf(ErrBufferTooSmall, "%s: %s into %s", b.Name,
			gu.BytesSize(float64(len(data))), gu.BytesSize(float64(b.Size)))
	}
	dst, err := b.Map()
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// CopyValues writes a slice of plain values to a host visible buffer
func CopyValues[T any](b *Buffer, values []T) error {
	return b.Copy(AsBytes(values))
}

// PrepareStagingBuffer creates the host visible buffer used to upload to a
// device local buffer. It is created once and reused.
func (b *Buffer) PrepareStagingBuffer() (*Buffer, error) {
	if b.HostVisible() {
		return nil, errors.Wrap(ErrHostVisible, b.Name)
	}
	if b.staging == nil {
		staging, err := b.ctx.CreateBuffer(BufferCreateInfo{
			Usage:  BufferUsageStaging,
			Memory: MemoryStaging,
			Size:   b.Size,
			Name:   b.Name + " staging",
		})
		if err != nil {
			return nil, err
		}
		b.staging = staging
	}
	return b.staging, nil
}

// Upload copies data into the buffer. Host visible buffers are written
// directly, device local ones through the staging buffer and a blocking
// submission on the general queue of tid.
func (b *Buffer) Upload(tid ThreadID, data []byte) error {
	if b.HostVisible() {
		return b.Copy(data)
	}
	return b.ctx.OneTimeSubmit(tid, QueueGeneral, func(cb *CommandBuffer) error {
		return cb.CopyBufferData(b, data)
	})
}

// Address returns the device address of the buffer. The buffer must have been
// created with the shader device address usage.
func (b *Buffer) Address() (DeviceAddress, error) {
	if err := requireProcs(b.ctx.procs, "buffer device address"); err != nil {
		return 0, err
	}
	return b.ctx.procs.BufferDeviceAddress(b.Device.VKDevice, b.VKBuffer), nil
}

func (b *Buffer) DescriptorInfo() vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: b.VKBuffer,
		Offset: 0,
		Range:  vk.DeviceSize(b.Size),
	}
}

func (b *Buffer) Destroy() {
	if b.staging != nil {
		b.staging.Destroy()
		b.staging = nil
	}
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
	if b.memory != nil {
		b.memory.Destroy()
	}
}
