package vulkaninja

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

func TestPackInstance(t *testing.T) {
	m := lin.Mat4x4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{1, 2, 3, 1},
	}

	r := packInstance(AccelInstance{
		Transform:   m,
		SBTOffset:   2,
		CustomIndex: 0x1234567,
	}, 0xABCD)

	assert.Equal(t, [3][4]float32{
		{1, 0, 0, 1},
		{0, 1, 0, 2},
		{0, 0, 1, 3},
	}, r.Transform)
	assert.EqualValues(t, 0xFF234567, r.CustomIndexMask, "index is cut to 24 bits under a full mask")
	assert.EqualValues(t, 0x01000002, r.SBTOffsetFlags)
	assert.EqualValues(t, 0xABCD, r.AccelerationRef)
}

func TestAccelInstanceRecordSize(t *testing.T) {
	records := []accelInstanceRecord{{}, {}}
	assert.Len(t, AsBytes(records), 128)
}

func TestTriangleGeometry(t *testing.T) {
	g := triangleGeometry(Triangles{VertexStride: 32, VertexCount: 8}, 0x100, 0x200)
	assert.Equal(t, GeometryTriangles, g.Type)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, g.VertexFormat)
	assert.EqualValues(t, 7, g.MaxVertex)
	assert.EqualValues(t, 32, g.VertexStride)
	assert.Equal(t, vk.IndexTypeUint32, g.IndexType)
	assert.EqualValues(t, 0x100, g.VertexData)
	assert.EqualValues(t, 0x200, g.IndexData)

	assert.EqualValues(t, 0, triangleGeometry(Triangles{}, 0, 0).MaxVertex)
}

func TestBottomAccelUpdate(t *testing.T) {
	procs := &fakeProcs{}
	tri := Triangles{
		VertexBuffer:  testBuffer(procs, 96),
		VertexStride:  12,
		VertexCount:   8,
		IndexBuffer:   testBuffer(procs, 48),
		TriangleCount: 4,
	}
	a := &BottomAccel{MaxTriangleCount: 10, triangleCount: 4, lastCount: 4}
	assert.False(t, a.ShouldRebuild())

	tri.TriangleCount = 11
	err := a.Update(tri)
	assert.True(t, errors.Is(err, ErrPrimitiveCountExceeded))
	assert.EqualValues(t, 4, a.TriangleCount(), "a rejected update keeps the geometry")

	tri.TriangleCount = 6
	require.NoError(t, a.Update(tri))
	assert.EqualValues(t, 6, a.TriangleCount())
	assert.True(t, a.ShouldRebuild())

	info := a.buildInfo(BuildModeUpdate)
	assert.Equal(t, BuildModeUpdate, info.Mode)
	assert.Equal(t, a.Handle, info.Src)
	assert.EqualValues(t, 6, info.PrimitiveCount)
	assert.Equal(t, BuildPreferFastTrace|BuildAllowUpdate, info.Flags)

	assert.Equal(t, NullAccel, a.buildInfo(BuildModeBuild).Src)
}

func TestNewBottomAccelStartsBuilt(t *testing.T) {
	procs := &fakeProcs{}
	info := BottomAccelCreateInfo{Triangles: Triangles{
		VertexBuffer:  testBuffer(procs, 96),
		VertexStride:  12,
		VertexCount:   8,
		IndexBuffer:   testBuffer(procs, 48),
		TriangleCount: 4,
	}}
	a, err := newBottomAccel(&info)
	require.NoError(t, err)
	assert.False(t, a.ShouldRebuild(), "a new structure needs no rebuild")
	assert.EqualValues(t, 4, a.MaxTriangleCount, "reserve defaults to the triangle count")
	assert.Equal(t, "bottom accel", info.Name)

	tri := info.Triangles
	tri.TriangleCount = 2
	require.NoError(t, a.Update(tri))
	assert.True(t, a.ShouldRebuild())

	tri.TriangleCount = 4
	require.NoError(t, a.Update(tri))
	assert.False(t, a.ShouldRebuild(), "back to the built count")
}

func TestBottomAccelGeometryNeedsBuffers(t *testing.T) {
	a := &BottomAccel{MaxTriangleCount: 10}
	assert.Error(t, a.Update(Triangles{TriangleCount: 1}))
}

func TestCreateAccelNeedsProcs(t *testing.T) {
	c := &Context{}
	_, err := c.CreateBottomAccel(BottomAccelCreateInfo{})
	assert.True(t, errors.Is(err, ErrExtensionProcs))

	_, err = c.CreateTopAccel([]AccelInstance{{}})
	assert.True(t, errors.Is(err, ErrExtensionProcs))

	c.procs = &fakeProcs{}
	_, err = c.CreateBottomAccel(BottomAccelCreateInfo{
		Triangles:        Triangles{TriangleCount: 12},
		MaxTriangleCount: 8,
	})
	assert.True(t, errors.Is(err, ErrPrimitiveCountExceeded))

	_, err = c.CreateTopAccel(nil)
	assert.Error(t, err)
}

func TestTopAccelInstanceCountFixed(t *testing.T) {
	procs := &fakeProcs{}
	a := &TopAccel{InstanceBuffer: testBuffer(procs, 128), instanceCount: 2}
	err := a.UpdateInstances([]AccelInstance{{Bottom: &BottomAccel{}}})
	assert.True(t, errors.Is(err, ErrInstanceCountChanged))
	assert.EqualValues(t, 2, a.InstanceCount())

	info, err := a.buildInfo(BuildModeBuild)
	require.NoError(t, err)
	assert.Equal(t, GeometryInstances, info.Geometry.Type)
	assert.EqualValues(t, 0x1000, info.Geometry.InstanceData)
	assert.EqualValues(t, 2, info.PrimitiveCount)
}
