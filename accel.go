package vulkaninja

import (
	gu "github.com/docker/go-units"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const (
	// bufferUsageAccelStorage is VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_STORAGE_BIT_KHR
	bufferUsageAccelStorage vk.BufferUsageFlagBits = 0x00100000
	// bufferUsageAccelInput is VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_BUILD_INPUT_READ_ONLY_BIT_KHR
	bufferUsageAccelInput vk.BufferUsageFlagBits = 0x00080000

	accessAccelRead  vk.AccessFlagBits        = 0x00200000
	accessAccelWrite vk.AccessFlagBits        = 0x00400000
	stageAccelBuild  vk.PipelineStageFlagBits = 0x02000000
)

// BufferUsageAccelInput has to be added to vertex and index buffers that
// feed a bottom level acceleration structure.
var BufferUsageAccelInput = vk.BufferUsageFlags(bufferUsageAccelInput | bufferUsageShaderDeviceAddress)

// accelCommon is the storage of a built acceleration structure
type accelCommon struct {
	ctx     *Context
	Handle  AccelHandle
	Address DeviceAddress
	Buffer  *Buffer
	Scratch *Buffer
}

func (c *Context) createAccel(typ AccelType, sizes AccelBuildSizes, name string) (*accelCommon, error) {
	buffer, err := c.CreateBuffer(BufferCreateInfo{
		Usage:  vk.BufferUsageFlags(bufferUsageAccelStorage | bufferUsageShaderDeviceAddress),
		Memory: MemoryDevice,
		Size:   sizes.AccelerationStructureSize,
		Name:   name,
	})
	if err != nil {
		return nil, err
	}

	scratchSize := sizes.BuildScratchSize
	if sizes.UpdateScratchSize > scratchSize {
		scratchSize = sizes.UpdateScratchSize
	}
	scratch, err := c.CreateBuffer(BufferCreateInfo{
		Usage:  vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | bufferUsageShaderDeviceAddress),
		Memory: MemoryDevice,
		Size:   scratchSize,
		Name:   name + " scratch",
	})
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	handle, err := c.procs.CreateAccel(c.Device.VKDevice, AccelCreateInfo{
		Buffer: buffer.VKBuffer,
		Size:   sizes.AccelerationStructureSize,
		Type:   typ,
	})
	if err != nil {
		scratch.Destroy()
		buffer.Destroy()
		return nil, errors.Wrapf(err, "create %s", name)
	}

	c.log.Debug("created acceleration structure", "name", name,
		"size", gu.BytesSize(float64(sizes.AccelerationStructureSize)),
		"scratch", gu.BytesSize(float64(scratchSize)))

	return &accelCommon{
		ctx:     c,
		Handle:  handle,
		Address: c.procs.AccelDeviceAddress(c.Device.VKDevice, handle),
		Buffer:  buffer,
		Scratch: scratch,
	}, nil
}

func (a *accelCommon) scratchAddress() (DeviceAddress, error) {
	return a.Scratch.Address()
}

func (a *accelCommon) Destroy() {
	a.ctx.procs.DestroyAccel(a.ctx.Device.VKDevice, a.Handle)
	a.Scratch.Destroy()
	a.Buffer.Destroy()
}

// Triangles describes indexed triangle geometry with R32G32B32 float
// positions at the start of each vertex and uint32 indices.
type Triangles struct {
	VertexBuffer  *Buffer
	VertexStride  uint64
	VertexCount   uint32
	IndexBuffer   *Buffer
	TriangleCount uint32
}

func (t Triangles) geometry() (AccelGeometry, error) {
	if t.VertexBuffer == nil || t.IndexBuffer == nil {
		return AccelGeometry{}, errors.New("triangle geometry needs a vertex and an index buffer")
	}
	vertexAddress, err := t.VertexBuffer.Address()
	if err != nil {
		return AccelGeometry{}, err
	}
	indexAddress, err := t.IndexBuffer.Address()
	if err != nil {
		return AccelGeometry{}, err
	}
	return triangleGeometry(t, vertexAddress, indexAddress), nil
}

func triangleGeometry(t Triangles, vertexAddress, indexAddress DeviceAddress) AccelGeometry {
	maxVertex := t.VertexCount
	if maxVertex > 0 {
		maxVertex--
	}
	return AccelGeometry{
		Type:         GeometryTriangles,
		Flags:        GeometryOpaque,
		VertexFormat: vk.FormatR32g32b32Sfloat,
		VertexData:   vertexAddress,
		VertexStride: t.VertexStride,
		MaxVertex:    maxVertex,
		IndexType:    vk.IndexTypeUint32,
		IndexData:    indexAddress,
	}
}

type BottomAccelCreateInfo struct {
	Triangles
	// MaxTriangleCount reserves space for later updates. It defaults to
	// TriangleCount.
	MaxTriangleCount uint32
	Name             string
}

// BottomAccel is a bottom level acceleration structure over one triangle
// mesh. It can be refit with a different geometry of at most the reserved
// triangle count.
type BottomAccel struct {
	accelCommon
	MaxTriangleCount uint32

	geometry      AccelGeometry
	triangleCount uint32
	lastCount     uint32
}

// newBottomAccel checks info and prepares the geometry. The triangle count at
// creation counts as built, so ShouldRebuild starts out false.
func newBottomAccel(info *BottomAccelCreateInfo) (*BottomAccel, error) {
	if info.MaxTriangleCount == 0 {
		info.MaxTriangleCount = info.TriangleCount
	}
	if info.TriangleCount > info.MaxTriangleCount {
		return nil, errors.Wrapf(ErrPrimitiveCountExceeded, "%d > %d", info.TriangleCount, info.MaxTriangleCount)
	}
	if info.Name == "" {
		info.Name = "bottom accel"
	}
	geometry, err := info.Triangles.geometry()
	if err != nil {
		return nil, err
	}
	return &BottomAccel{
		MaxTriangleCount: info.MaxTriangleCount,
		geometry:         geometry,
		triangleCount:    info.TriangleCount,
		lastCount:        info.TriangleCount,
	}, nil
}

func (c *Context) CreateBottomAccel(info BottomAccelCreateInfo) (*BottomAccel, error) {
	if err := requireProcs(c.procs, "bottom level acceleration structure"); err != nil {
		return nil, err
	}
	a, err := newBottomAccel(&info)
	if err != nil {
		return nil, err
	}
	buildInfo := a.buildInfo(BuildModeBuild)
	sizes := c.procs.AccelBuildSizes(c.Device.VKDevice, AccelBuildDevice, &buildInfo, info.MaxTriangleCount)

	common, err := c.createAccel(AccelBottomLevel, sizes, info.Name)
	if err != nil {
		return nil, err
	}
	a.accelCommon = *common
	return a, nil
}

func (a *BottomAccel) buildInfo(mode BuildAccelMode) AccelBuildInfo {
	info := AccelBuildInfo{
		Type:           AccelBottomLevel,
		Flags:          BuildPreferFastTrace | BuildAllowUpdate,
		Mode:           mode,
		Dst:            a.Handle,
		Geometry:       a.geometry,
		PrimitiveCount: a.triangleCount,
	}
	if mode == BuildModeUpdate {
		info.Src = a.Handle
	}
	return info
}

// Update replaces the geometry. The structure has to be updated or rebuilt
// on a command buffer afterwards.
func (a *BottomAccel) Update(t Triangles) error {
	if t.TriangleCount > a.MaxTriangleCount {
		return errors.Wrapf(ErrPrimitiveCountExceeded, "%d > %d", t.TriangleCount, a.MaxTriangleCount)
	}
	geometry, err := t.geometry()
	if err != nil {
		return err
	}
	a.geometry = geometry
	a.triangleCount = t.TriangleCount
	return nil
}

// ShouldRebuild reports whether the triangle count changed since creation or
// the last build, in which case a refit is not valid.
func (a *BottomAccel) ShouldRebuild() bool {
	return a.lastCount != a.triangleCount
}

func (a *BottomAccel) TriangleCount() uint32 {
	return a.triangleCount
}

// TopAccel is a top level acceleration structure over a fixed number of
// instances.
type TopAccel struct {
	accelCommon
	InstanceBuffer *Buffer

	instanceCount uint32
}

func (c *Context) CreateTopAccel(instances []AccelInstance) (*TopAccel, error) {
	if err := requireProcs(c.procs, "top level acceleration structure"); err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, errors.New("top level acceleration structure needs at least one instance")
	}

	records := packInstances(instances)
	instanceBuffer, err := c.CreateBuffer(BufferCreateInfo{
		Usage:  vk.BufferUsageFlags(bufferUsageAccelInput | bufferUsageShaderDeviceAddress),
		Memory: MemoryDeviceHost,
		Size:   uint64(len(AsBytes(records))),
		Name:   "accel instances",
	})
	if err != nil {
		return nil, err
	}
	if err := CopyValues(instanceBuffer, records); err != nil {
		instanceBuffer.Destroy()
		return nil, err
	}

	a := &TopAccel{InstanceBuffer: instanceBuffer, instanceCount: uint32(len(instances))}
	buildInfo, err := a.buildInfo(BuildModeBuild)
	if err != nil {
		instanceBuffer.Destroy()
		return nil, err
	}
	sizes := c.procs.AccelBuildSizes(c.Device.VKDevice, AccelBuildDevice, &buildInfo, a.instanceCount)

	common, err := c.createAccel(AccelTopLevel, sizes, "top accel")
	if err != nil {
		instanceBuffer.Destroy()
		return nil, err
	}
	a.accelCommon = *common
	return a, nil
}

func (a *TopAccel) buildInfo(mode BuildAccelMode) (AccelBuildInfo, error) {
	instanceAddress, err := a.InstanceBuffer.Address()
	if err != nil {
		return AccelBuildInfo{}, err
	}
	info := AccelBuildInfo{
		Type:  AccelTopLevel,
		Flags: BuildPreferFastTrace | BuildAllowUpdate,
		Mode:  mode,
		Dst:   a.Handle,
		Geometry: AccelGeometry{
			Type:         GeometryInstances,
			Flags:        GeometryOpaque,
			InstanceData: instanceAddress,
		},
		PrimitiveCount: a.instanceCount,
	}
	if mode == BuildModeUpdate {
		info.Src = a.Handle
	}
	return info, nil
}

// UpdateInstances rewrites the instance buffer. The number of instances
// can not change.
func (a *TopAccel) UpdateInstances(instances []AccelInstance) error {
	if uint32(len(instances)) != a.instanceCount {
		return errors.Wrapf(ErrInstanceCountChanged, "%d != %d", len(instances), a.instanceCount)
	}
	return CopyValues(a.InstanceBuffer, packInstances(instances))
}

func (a *TopAccel) InstanceCount() uint32 {
	return a.instanceCount
}

func (a *TopAccel) Destroy() {
	a.accelCommon.Destroy()
	a.InstanceBuffer.Destroy()
}

func (c *CommandBuffer) buildAccel(a *accelCommon, info AccelBuildInfo) error {
	if err := requireProcs(c.procs, "build acceleration structure"); err != nil {
		return err
	}
	scratch, err := a.scratchAddress()
	if err != nil {
		return err
	}
	info.ScratchData = scratch
	c.procs.CmdBuildAccel(c.VKCommandBuffer, &info)
	c.MemoryBarrier(vk.PipelineStageFlags(stageAccelBuild), vk.PipelineStageFlags(stageAccelBuild),
		vk.AccessFlags(accessAccelWrite), vk.AccessFlags(accessAccelRead))
	return nil
}

func (c *CommandBuffer) BuildBottomAccel(a *BottomAccel) error {
	if err := c.buildAccel(&a.accelCommon, a.buildInfo(BuildModeBuild)); err != nil {
		return err
	}
	a.lastCount = a.triangleCount
	return nil
}

// UpdateBottomAccel refits the structure to the geometry given to Update.
// It rebuilds instead when the triangle count changed.
func (c *CommandBuffer) UpdateBottomAccel(a *BottomAccel) error {
	if a.ShouldRebuild() {
		return c.BuildBottomAccel(a)
	}
	return c.buildAccel(&a.accelCommon, a.buildInfo(BuildModeUpdate))
}

func (c *CommandBuffer) BuildTopAccel(a *TopAccel) error {
	info, err := a.buildInfo(BuildModeBuild)
	if err != nil {
		return err
	}
	return c.buildAccel(&a.accelCommon, info)
}

func (c *CommandBuffer) UpdateTopAccel(a *TopAccel) error {
	info, err := a.buildInfo(BuildModeUpdate)
	if err != nil {
		return err
	}
	return c.buildAccel(&a.accelCommon, info)
}
