package vulkaninja

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// fakeProcs records the extension calls made through it
type fakeProcs struct {
	props    RayTracingProperties
	sizes    AccelBuildSizes
	next     AccelHandle
	builds   []AccelBuildInfo
	written  map[uint32][]AccelHandle
	cullMode vk.CullModeFlags
}

var _ ExtensionProcs = (*fakeProcs)(nil)

func (f *fakeProcs) DeviceCreateNext(vk.PhysicalDevice, DeviceFeatures) unsafe.Pointer { return nil }

func (f *fakeProcs) Load(vk.Instance, vk.Device) error { return nil }

func (f *fakeProcs) BufferDeviceAddress(_ vk.Device, _ vk.Buffer) DeviceAddress {
	return 0x1000
}

func (f *fakeProcs) AccelBuildSizes(vk.Device, AccelBuildType, *AccelBuildInfo, uint32) AccelBuildSizes {
	return f.sizes
}

func (f *fakeProcs) CreateAccel(vk.Device, AccelCreateInfo) (AccelHandle, error) {
	f.next++
	return f.next, nil
}

func (f *fakeProcs) DestroyAccel(vk.Device, AccelHandle) {}

func (f *fakeProcs) AccelDeviceAddress(_ vk.Device, accel AccelHandle) DeviceAddress {
	return DeviceAddress(accel) << 16
}

func (f *fakeProcs) CmdBuildAccel(_ vk.CommandBuffer, info *AccelBuildInfo) {
	f.builds = append(f.builds, *info)
}

func (f *fakeProcs) WriteAccelDescriptor(_ vk.Device, _ vk.DescriptorSet, binding uint32, accels []AccelHandle) {
	if f.written == nil {
		f.written = make(map[uint32][]AccelHandle)
	}
	f.written[binding] = accels
}

func (f *fakeProcs) RayTracingProperties(vk.PhysicalDevice) RayTracingProperties { return f.props }

func (f *fakeProcs) CreateRayTracingPipeline(vk.Device, *RayTracingPipelineInfo) (vk.Pipeline, error) {
	return vk.NullPipeline, nil
}

func (f *fakeProcs) ShaderGroupHandles(vk.Device, vk.Pipeline, uint32, uint32, []byte) error {
	return nil
}

func (f *fakeProcs) CmdTraceRays(vk.CommandBuffer, *StridedRegion, *StridedRegion, *StridedRegion, *StridedRegion, uint32, uint32, uint32) {
}

func (f *fakeProcs) CmdDrawMeshTasks(vk.CommandBuffer, uint32, uint32, uint32) {}

func (f *fakeProcs) CmdSetCullMode(_ vk.CommandBuffer, mode vk.CullModeFlags) { f.cullMode = mode }

func (f *fakeProcs) CmdSetFrontFace(vk.CommandBuffer, vk.FrontFace) {}

func (f *fakeProcs) CmdSetPrimitiveTopology(vk.CommandBuffer, vk.PrimitiveTopology) {}

func (f *fakeProcs) CmdSetPolygonMode(vk.CommandBuffer, vk.PolygonMode) {}

// testBuffer is a buffer whose device address comes from procs
func testBuffer(procs ExtensionProcs, size uint64) *Buffer {
	return &Buffer{
		Device: &Device{},
		Size:   size,
		ctx:    &Context{procs: procs},
	}
}
