//go:build !386 && !arm

package extprocs

// #cgo linux LDFLAGS: -ldl
// #include "procs.h"
import "C"

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/zzxzzk115/vulkaninja"
)

// ErrNotInstalled is returned by Load when the Vulkan library can not be opened
var ErrNotInstalled = errors.New("vulkan library not found")

var loaderMu sync.Mutex

func init() {
	vulkaninja.RegisterExtensionProcs(func() vulkaninja.ExtensionProcs { return New() })
}

// Procs holds the extension entry points of one device
type Procs struct {
	table    *C.procTable
	chain    *C.featureChain
	features vulkaninja.DeviceFeatures
	found    [procCount]bool
}

var _ vulkaninja.ExtensionProcs = (*Procs)(nil)

func New() *Procs {
	return &Procs{table: (*C.procTable)(C.calloc(1, C.size_t(unsafe.Sizeof(C.procTable{}))))}
}

func cDevice(d vk.Device) C.VkDevice {
	return C.VkDevice(unsafe.Pointer(d))
}

func cCommandBuffer(cb vk.CommandBuffer) C.VkCommandBuffer {
	return C.VkCommandBuffer(unsafe.Pointer(cb))
}

// handle passes a non-dispatchable handle, a pointer on 64-bit targets
func handle(p unsafe.Pointer) C.uint64_t {
	return C.uint64_t(uintptr(p))
}

func (p *Procs) DeviceCreateNext(_ vk.PhysicalDevice, features vulkaninja.DeviceFeatures) unsafe.Pointer {
	if p.chain != nil {
		C.free(unsafe.Pointer(p.chain))
		p.chain = nil
	}
	p.features = features
	if !features.Any() {
		return nil
	}
	p.chain = C.newFeatureChain(cBool(features.RayTracing), cBool(features.MeshShader), cBool(features.ExtendedDynamicState))
	if p.chain == nil {
		return nil
	}
	return p.chain.head
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// Load resolves the device procs. Every proc needed by the features passed
// to DeviceCreateNext has to be found.
func (p *Procs) Load(instance vk.Instance, device vk.Device) error {
	loaderMu.Lock()
	opened := C.openLoader() != 0
	loaderMu.Unlock()
	if !opened {
		return errors.WithStack(ErrNotInstalled)
	}
	if C.loadInstance(p.table, C.VkInstance(unsafe.Pointer(instance))) == 0 {
		return errors.New("vkGetDeviceProcAddr is not available")
	}

	dev := cDevice(device)
	p.found = resolveProcs(func(proc int, name string) bool {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))
		return C.loadDeviceProc(p.table, dev, C.int(proc), cname) != 0
	})
	if missing := missingProcs(requiredProcs(p.features), p.found); len(missing) > 0 {
		return errors.Wrap(vulkaninja.ErrMissingExtension, strings.Join(missing, ", "))
	}

	count := 0
	for _, ok := range p.found {
		if ok {
			count++
		}
	}
	vulkaninja.Logger().Debug("loaded extension procs", "found", count, "of", int(procCount))
	return nil
}

// Release frees the proc table and the feature chain
func (p *Procs) Release() {
	if p.chain != nil {
		C.free(unsafe.Pointer(p.chain))
		p.chain = nil
	}
	if p.table != nil {
		C.free(unsafe.Pointer(p.table))
		p.table = nil
	}
}

func (p *Procs) BufferDeviceAddress(device vk.Device, buffer vk.Buffer) vulkaninja.DeviceAddress {
	return vulkaninja.DeviceAddress(C.bufferDeviceAddress(p.table, cDevice(device), handle(unsafe.Pointer(buffer))))
}

func cBuild(info *vulkaninja.AccelBuildInfo) C.accelBuild {
	g := info.Geometry
	return C.accelBuild{
		_type:          C.uint32_t(info.Type),
		flags:          C.uint32_t(info.Flags),
		mode:           C.uint32_t(info.Mode),
		src:            C.uint64_t(info.Src),
		dst:            C.uint64_t(info.Dst),
		geometryType:   C.uint32_t(g.Type),
		geometryFlags:  C.uint32_t(g.Flags),
		vertexFormat:   C.int32_t(g.VertexFormat),
		vertexData:     C.uint64_t(g.VertexData),
		vertexStride:   C.uint64_t(g.VertexStride),
		maxVertex:      C.uint32_t(g.MaxVertex),
		indexType:      C.int32_t(g.IndexType),
		indexData:      C.uint64_t(g.IndexData),
		instanceData:   C.uint64_t(g.InstanceData),
		primitiveCount: C.uint32_t(info.PrimitiveCount),
		scratchData:    C.uint64_t(info.ScratchData),
	}
}

func (p *Procs) AccelBuildSizes(device vk.Device, buildType vulkaninja.AccelBuildType, info *vulkaninja.AccelBuildInfo, maxPrimitiveCount uint32) vulkaninja.AccelBuildSizes {
	b := cBuild(info)
	var sizes [3]C.uint64_t
	C.accelBuildSizes(p.table, cDevice(device), C.uint32_t(buildType), &b, C.uint32_t(maxPrimitiveCount), &sizes[0])
	return vulkaninja.AccelBuildSizes{
		AccelerationStructureSize: uint64(sizes[0]),
		UpdateScratchSize:         uint64(sizes[1]),
		BuildScratchSize:          uint64(sizes[2]),
	}
}

func (p *Procs) CreateAccel(device vk.Device, info vulkaninja.AccelCreateInfo) (vulkaninja.AccelHandle, error) {
	var accel C.uint64_t
	res := C.createAccel(p.table, cDevice(device), handle(unsafe.Pointer(info.Buffer)), C.uint64_t(info.Size),
		C.uint32_t(info.Type), &accel)
	if err := vk.Error(vk.Result(res)); err != nil {
		return vulkaninja.NullAccel, errors.Wrap(err, "vkCreateAccelerationStructureKHR")
	}
	return vulkaninja.AccelHandle(accel), nil
}

func (p *Procs) DestroyAccel(device vk.Device, accel vulkaninja.AccelHandle) {
	C.destroyAccel(p.table, cDevice(device), C.uint64_t(accel))
}

func (p *Procs) AccelDeviceAddress(device vk.Device, accel vulkaninja.AccelHandle) vulkaninja.DeviceAddress {
	return vulkaninja.DeviceAddress(C.accelDeviceAddress(p.table, cDevice(device), C.uint64_t(accel)))
}

func (p *Procs) CmdBuildAccel(cmd vk.CommandBuffer, info *vulkaninja.AccelBuildInfo) {
	b := cBuild(info)
	C.cmdBuildAccel(p.table, cCommandBuffer(cmd), &b)
}

func (p *Procs) WriteAccelDescriptor(device vk.Device, set vk.DescriptorSet, binding uint32, accels []vulkaninja.AccelHandle) {
	if len(accels) == 0 {
		return
	}
	C.writeAccelDescriptor(p.table, cDevice(device), handle(unsafe.Pointer(set)), C.uint32_t(binding),
		C.uint32_t(len(accels)), (*C.uint64_t)(unsafe.Pointer(&accels[0])))
}

func (p *Procs) RayTracingProperties(physical vk.PhysicalDevice) vulkaninja.RayTracingProperties {
	var props [4]C.uint32_t
	C.rayTracingProperties(p.table, C.VkPhysicalDevice(unsafe.Pointer(physical)), &props[0])
	return vulkaninja.RayTracingProperties{
		ShaderGroupHandleSize:      uint32(props[0]),
		ShaderGroupHandleAlignment: uint32(props[1]),
		ShaderGroupBaseAlignment:   uint32(props[2]),
		MaxRayRecursionDepth:       uint32(props[3]),
	}
}

func (p *Procs) CreateRayTracingPipeline(device vk.Device, info *vulkaninja.RayTracingPipelineInfo) (vk.Pipeline, error) {
	if len(info.Stages) == 0 || len(info.Groups) == 0 {
		return vk.NullPipeline, errors.New("ray tracing pipeline without stages")
	}

	stages := make([]C.rtStage, len(info.Stages))
	for i, s := range info.Stages {
		entry := C.CString(strings.TrimRight(s.PName, "\x00"))
		defer C.free(unsafe.Pointer(entry))
		stages[i] = C.rtStage{
			stage:  C.uint32_t(s.Stage),
			module: handle(unsafe.Pointer(s.Module)),
			entry:  entry,
		}
	}
	groups := make([]C.rtGroup, len(info.Groups))
	for i, g := range info.Groups {
		groups[i] = C.rtGroup{
			_type:        C.uint32_t(g.Type),
			general:      C.uint32_t(g.General),
			closestHit:   C.uint32_t(g.ClosestHit),
			anyHit:       C.uint32_t(g.AnyHit),
			intersection: C.uint32_t(g.Intersection),
		}
	}

	var pipeline C.VkPipeline
	res := C.createRayTracingPipeline(p.table, cDevice(device),
		C.uint32_t(len(stages)), &stages[0], C.uint32_t(len(groups)), &groups[0],
		C.uint32_t(info.MaxRecursionDepth), handle(unsafe.Pointer(info.Layout)), &pipeline)
	if err := vk.Error(vk.Result(res)); err != nil {
		return vk.NullPipeline, errors.Wrap(err, "vkCreateRayTracingPipelinesKHR")
	}
	return vk.Pipeline(unsafe.Pointer(pipeline)), nil
}

func (p *Procs) ShaderGroupHandles(device vk.Device, pipeline vk.Pipeline, firstGroup, groupCount uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	res := C.shaderGroupHandles(p.table, cDevice(device), C.VkPipeline(unsafe.Pointer(pipeline)),
		C.uint32_t(firstGroup), C.uint32_t(groupCount), C.size_t(len(data)), unsafe.Pointer(&data[0]))
	return errors.Wrap(vk.Error(vk.Result(res)), "vkGetRayTracingShaderGroupHandlesKHR")
}

func cRegion(r *vulkaninja.StridedRegion) C.VkStridedDeviceAddressRegionKHR {
	return C.VkStridedDeviceAddressRegionKHR{
		deviceAddress: C.VkDeviceAddress(r.DeviceAddress),
		stride:        C.VkDeviceSize(r.Stride),
		size:          C.VkDeviceSize(r.Size),
	}
}

func (p *Procs) CmdTraceRays(cmd vk.CommandBuffer, raygen, miss, hit, callable *vulkaninja.StridedRegion, width, height, depth uint32) {
	regions := [4]C.VkStridedDeviceAddressRegionKHR{cRegion(raygen), cRegion(miss), cRegion(hit), cRegion(callable)}
	C.cmdTraceRays(p.table, cCommandBuffer(cmd), &regions[0], C.uint32_t(width), C.uint32_t(height), C.uint32_t(depth))
}

func (p *Procs) CmdDrawMeshTasks(cmd vk.CommandBuffer, x, y, z uint32) {
	C.cmdDrawMeshTasks(p.table, cCommandBuffer(cmd), C.uint32_t(x), C.uint32_t(y), C.uint32_t(z))
}

func (p *Procs) CmdSetCullMode(cmd vk.CommandBuffer, mode vk.CullModeFlags) {
	C.cmdSetCullMode(p.table, cCommandBuffer(cmd), C.uint32_t(mode))
}

func (p *Procs) CmdSetFrontFace(cmd vk.CommandBuffer, face vk.FrontFace) {
	C.cmdSetFrontFace(p.table, cCommandBuffer(cmd), C.int32_t(face))
}

func (p *Procs) CmdSetPrimitiveTopology(cmd vk.CommandBuffer, topology vk.PrimitiveTopology) {
	C.cmdSetPrimitiveTopology(p.table, cCommandBuffer(cmd), C.int32_t(topology))
}

func (p *Procs) CmdSetPolygonMode(cmd vk.CommandBuffer, mode vk.PolygonMode) {
	C.cmdSetPolygonMode(p.table, cCommandBuffer(cmd), C.int32_t(mode))
}
