package vulkaninja

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceAddress is a GPU virtual address as returned by vkGetBufferDeviceAddress
type DeviceAddress uint64

// AccelHandle is a VkAccelerationStructureKHR
type AccelHandle uint64

const NullAccel AccelHandle = 0

// ShaderUnused is VK_SHADER_UNUSED_KHR
const ShaderUnused = ^uint32(0)

type AccelType uint32

const (
	AccelTopLevel    AccelType = 0
	AccelBottomLevel AccelType = 1
)

type GeometryType uint32

const (
	GeometryTriangles GeometryType = 0
	GeometryInstances GeometryType = 2
)

type GeometryFlags uint32

const (
	GeometryOpaque                      GeometryFlags = 0x1
	GeometryNoDuplicateAnyHitInvocation GeometryFlags = 0x2
)

type BuildAccelFlags uint32

const (
	BuildAllowUpdate     BuildAccelFlags = 0x1
	BuildAllowCompaction BuildAccelFlags = 0x2
	BuildPreferFastTrace BuildAccelFlags = 0x4
	BuildPreferFastBuild BuildAccelFlags = 0x8
)

type BuildAccelMode uint32

const (
	BuildModeBuild  BuildAccelMode = 0
	BuildModeUpdate BuildAccelMode = 1
)

// AccelBuildType is VkAccelerationStructureBuildTypeKHR
type AccelBuildType uint32

const (
	AccelBuildHost         AccelBuildType = 0
	AccelBuildDevice       AccelBuildType = 1
	AccelBuildHostOrDevice AccelBuildType = 2
)

// AccelGeometry mirrors VkAccelerationStructureGeometryKHR for the two
// geometry kinds in use. Triangle fields are ignored for instances and the
// other way around.
type AccelGeometry struct {
	Type  GeometryType
	Flags GeometryFlags

	VertexFormat vk.Format
	VertexData   DeviceAddress
	VertexStride uint64
	MaxVertex    uint32
	IndexType    vk.IndexType
	IndexData    DeviceAddress

	InstanceData DeviceAddress
}

// AccelBuildInfo mirrors VkAccelerationStructureBuildGeometryInfoKHR with a
// single geometry and its build range.
type AccelBuildInfo struct {
	Type           AccelType
	Flags          BuildAccelFlags
	Mode           BuildAccelMode
	Src            AccelHandle
	Dst            AccelHandle
	Geometry       AccelGeometry
	PrimitiveCount uint32
	ScratchData    DeviceAddress
}

type AccelBuildSizes struct {
	AccelerationStructureSize uint64
	UpdateScratchSize         uint64
	BuildScratchSize          uint64
}

type AccelCreateInfo struct {
	Buffer vk.Buffer
	Size   uint64
	Type   AccelType
}

// RayTracingProperties holds the VkPhysicalDeviceRayTracingPipelinePropertiesKHR
// values needed to lay out a shader binding table.
type RayTracingProperties struct {
	ShaderGroupHandleSize      uint32
	ShaderGroupHandleAlignment uint32
	ShaderGroupBaseAlignment   uint32
	MaxRayRecursionDepth       uint32
}

type ShaderGroupType uint32

const (
	ShaderGroupGeneral       ShaderGroupType = 0
	ShaderGroupTrianglesHit  ShaderGroupType = 1
	ShaderGroupProceduralHit ShaderGroupType = 2
)

// ShaderGroup mirrors VkRayTracingShaderGroupCreateInfoKHR. Unused stage
// indices are ShaderUnused.
type ShaderGroup struct {
	Type         ShaderGroupType
	General      uint32
	ClosestHit   uint32
	AnyHit       uint32
	Intersection uint32
}

type RayTracingPipelineInfo struct {
	Stages            []vk.PipelineShaderStageCreateInfo
	Groups            []ShaderGroup
	MaxRecursionDepth uint32
	Layout            vk.PipelineLayout
}

// StridedRegion is a VkStridedDeviceAddressRegionKHR
type StridedRegion struct {
	DeviceAddress DeviceAddress
	Stride        uint64
	Size          uint64
}

// DeviceFeatures are the optional device features which need ExtensionProcs
type DeviceFeatures struct {
	RayTracing           bool
	MeshShader           bool
	ExtendedDynamicState bool
}

// Any reports whether a feature is requested
func (f DeviceFeatures) Any() bool {
	return f.RayTracing || f.MeshShader || f.ExtendedDynamicState
}

// ExtensionProcs supplies the device entry points that are newer than the
// Vulkan 1.1 binding: buffer device addresses, acceleration structures, ray
// tracing pipelines, mesh shading and extended dynamic state. Implementations
// typically resolve them through vkGetDeviceProcAddr in Load.
type ExtensionProcs interface {
	// DeviceCreateNext returns the feature structure chain appended to
	// VkDeviceCreateInfo for the requested features.
	DeviceCreateNext(physical vk.PhysicalDevice, features DeviceFeatures) unsafe.Pointer
	// Load is called once the device exists.
	Load(instance vk.Instance, device vk.Device) error

	BufferDeviceAddress(device vk.Device, buffer vk.Buffer) DeviceAddress

	AccelBuildSizes(device vk.Device, buildType AccelBuildType, info *AccelBuildInfo, maxPrimitiveCount uint32) AccelBuildSizes
	CreateAccel(device vk.Device, info AccelCreateInfo) (AccelHandle, error)
	DestroyAccel(device vk.Device, accel AccelHandle)
	AccelDeviceAddress(device vk.Device, accel AccelHandle) DeviceAddress
	CmdBuildAccel(cmd vk.CommandBuffer, info *AccelBuildInfo)
	WriteAccelDescriptor(device vk.Device, set vk.DescriptorSet, binding uint32, accels []AccelHandle)

	RayTracingProperties(physical vk.PhysicalDevice) RayTracingProperties
	CreateRayTracingPipeline(device vk.Device, info *RayTracingPipelineInfo) (vk.Pipeline, error)
	ShaderGroupHandles(device vk.Device, pipeline vk.Pipeline, firstGroup, groupCount uint32, data []byte) error
	CmdTraceRays(cmd vk.CommandBuffer, raygen, miss, hit, callable *StridedRegion, width, height, depth uint32)

	CmdDrawMeshTasks(cmd vk.CommandBuffer, x, y, z uint32)

	CmdSetCullMode(cmd vk.CommandBuffer, mode vk.CullModeFlags)
	CmdSetFrontFace(cmd vk.CommandBuffer, face vk.FrontFace)
	CmdSetPrimitiveTopology(cmd vk.CommandBuffer, topology vk.PrimitiveTopology)
	CmdSetPolygonMode(cmd vk.CommandBuffer, mode vk.PolygonMode)
}

var (
	procsMu      sync.Mutex
	defaultProcs func() ExtensionProcs
)

// RegisterExtensionProcs makes newProcs the source of ExtensionProcs for
// contexts which request a DeviceFeatures feature without setting
// ContextConfig.Procs. Importing the extprocs package registers its loader.
func RegisterExtensionProcs(newProcs func() ExtensionProcs) {
	procsMu.Lock()
	defer procsMu.Unlock()
	defaultProcs = newProcs
}

func registeredProcs() ExtensionProcs {
	procsMu.Lock()
	defer procsMu.Unlock()
	if defaultProcs == nil {
		return nil
	}
	return defaultProcs()
}

// requireProcs returns ErrExtensionProcs naming the operation when procs is nil
func requireProcs(procs ExtensionProcs, op string) error {
	if procs == nil {
		return errors.Wrap(ErrExtensionProcs, op)
	}
	return nil
}
