package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// bufferUsageShaderBindingTable is VK_BUFFER_USAGE_SHADER_BINDING_TABLE_BIT_KHR
const bufferUsageShaderBindingTable vk.BufferUsageFlagBits = 0x00000400

// sbtRegion is a region of the table before the buffer address is known
type sbtRegion struct {
	Offset uint64
	Stride uint64
	Size   uint64
	Groups uint32
}

type sbtLayout struct {
	HandleSize        uint32
	HandleSizeAligned uint64
	Raygen            sbtRegion
	Miss              sbtRegion
	Hit               sbtRegion
	Size              uint64
}

// computeSBTLayout places the raygen, miss and hit regions one after another.
// Every region starts on the base alignment and records are spaced by the
// aligned handle size. The raygen region holds a single record whose stride
// equals its size.
func computeSBTLayout(props RayTracingProperties, raygenCount, missCount, hitCount uint32) (sbtLayout, error) {
	if raygenCount != 1 {
		return sbtLayout{}, errors.Errorf("shader binding table needs exactly one raygen group, got %d", raygenCount)
	}
	hsa := makeAlignUp(uint64(props.ShaderGroupHandleSize), uint64(props.ShaderGroupHandleAlignment))
	base := uint64(props.ShaderGroupBaseAlignment)

	raygenSize := makeAlignUp(hsa, base)
	missSize := makeAlignUp(uint64(missCount)*hsa, base)
	hitSize := makeAlignUp(uint64(hitCount)*hsa, base)

	alloc := &LinearAllocator{Size: raygenSize + missSize + hitSize}
	place := func(size, stride uint64, groups uint32) (sbtRegion, error) {
		if size == 0 {
			return sbtRegion{Stride: stride, Groups: groups}, nil
		}
		a := alloc.Allocate(size, base)
		if a == nil {
			return sbtRegion{}, errors.New("shader binding table region does not fit")
		}
		return sbtRegion{Offset: a.Offset, Stride: stride, Size: size, Groups: groups}, nil
	}

	l := sbtLayout{HandleSize: props.ShaderGroupHandleSize, HandleSizeAligned: hsa}
	var err error
	if l.Raygen, err = place(raygenSize, raygenSize, raygenCount); err != nil {
		return l, err
	}
	if l.Miss, err = place(missSize, hsa, missCount); err != nil {
		return l, err
	}
	if l.Hit, err = place(hitSize, hsa, hitCount); err != nil {
		return l, err
	}
	l.Size = alloc.Used()
	return l, nil
}

// fill copies the group handles, stored back to back in handles, to their
// records in the table.
func (l *sbtLayout) fill(dst, handles []byte) {
	hs := int(l.HandleSize)
	group := 0
	for _, r := range []sbtRegion{l.Raygen, l.Miss, l.Hit} {
		for i := 0; i < int(r.Groups); i++ {
			at := int(r.Offset) + i*int(r.Stride)
			copy(dst[at:at+hs], handles[group*hs:(group+1)*hs])
			group++
		}
	}
}

// ShaderBindingTable holds the shader group handles of a ray tracing
// pipeline and the regions passed to vkCmdTraceRaysKHR.
type ShaderBindingTable struct {
	Buffer   *Buffer
	Raygen   StridedRegion
	Miss     StridedRegion
	Hit      StridedRegion
	Callable StridedRegion
}

func (c *Context) createShaderBindingTable(pipeline vk.Pipeline, raygenCount, missCount, hitCount uint32) (*ShaderBindingTable, error) {
	props := c.procs.RayTracingProperties(c.Device.PhysicalDevice.VKPhysicalDevice)
	l, err := computeSBTLayout(props, raygenCount, missCount, hitCount)
	if err != nil {
		return nil, err
	}

	groupCount := raygenCount + missCount + hitCount
	handles := make([]byte, groupCount*props.ShaderGroupHandleSize)
	err = c.procs.ShaderGroupHandles(c.Device.VKDevice, pipeline, 0, groupCount, handles)
	if err != nil {
		return nil, errors.Wrap(err, "get shader group handles")
	}

	buffer, err := c.CreateBuffer(BufferCreateInfo{
		Usage: vk.BufferUsageFlags(bufferUsageShaderBindingTable|bufferUsageShaderDeviceAddress) |
			vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		Memory: MemoryHost,
		Size:   l.Size,
		Name:   "shader binding table",
	})
	if err != nil {
		return nil, err
	}

	data, err := buffer.Map()
	if err != nil {
		buffer.Destroy()
		return nil, err
	}
	l.fill(data, handles)

	address, err := buffer.Address()
	if err != nil {
		buffer.Destroy()
		return nil, err
	}
	region := func(r sbtRegion) StridedRegion {
		if r.Size == 0 {
			return StridedRegion{}
		}
		return StridedRegion{DeviceAddress: address + DeviceAddress(r.Offset), Stride: r.Stride, Size: r.Size}
	}

	return &ShaderBindingTable{
		Buffer: buffer,
		Raygen: region(l.Raygen),
		Miss:   region(l.Miss),
		Hit:    region(l.Hit),
	}, nil
}

func (s *ShaderBindingTable) Destroy() {
	s.Buffer.Destroy()
}
