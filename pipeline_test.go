package vulkaninja

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestPipelineKind(t *testing.T) {
	assert.Equal(t, "MeshShader", PipelineMeshShader.String())
	assert.Equal(t, "PipelineKind(9)", PipelineKind(9).String())

	assert.Equal(t, vk.PipelineBindPointGraphics, PipelineGraphics.BindPoint())
	assert.Equal(t, vk.PipelineBindPointGraphics, PipelineMeshShader.BindPoint())
	assert.Equal(t, vk.PipelineBindPointCompute, PipelineCompute.BindPoint())
	assert.Equal(t, PipelineBindPointRayTracing, PipelineRayTracing.BindPoint())

	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageComputeBit), PipelineCompute.StageFlags())
	assert.NotZero(t, PipelineMeshShader.StageFlags()&vk.ShaderStageFlags(ShaderStageMeshBit))
	assert.NotZero(t, PipelineRayTracing.StageFlags()&vk.ShaderStageFlags(ShaderStageRaygenBit))
}

func TestShaderBindingTableOnlyForRayTracing(t *testing.T) {
	sbt := &ShaderBindingTable{}
	got, err := (&Pipeline{Kind: PipelineRayTracing, SBT: sbt}).ShaderBindingTable()
	require.NoError(t, err)
	assert.Same(t, sbt, got)

	for _, kind := range []PipelineKind{PipelineGraphics, PipelineCompute, PipelineMeshShader} {
		_, err := (&Pipeline{Kind: kind}).ShaderBindingTable()
		assert.True(t, errors.Is(err, ErrPipelineKind), kind.String())
	}
}

func TestPushConstantRanges(t *testing.T) {
	assert.Nil(t, pushConstantRanges(0, vk.ShaderStageFlags(vk.ShaderStageAll)))

	ranges := pushConstantRanges(64, PipelineCompute.StageFlags())
	require.Len(t, ranges, 1)
	assert.EqualValues(t, 0, ranges[0].Offset)
	assert.EqualValues(t, 64, ranges[0].Size)
	assert.Equal(t, PipelineCompute.StageFlags(), ranges[0].StageFlags)
}

func TestDynamicValue(t *testing.T) {
	var unset DynamicValue[float32]
	assert.False(t, unset.IsDynamic())
	assert.Equal(t, float32(1), unset.Or(1))

	assert.Equal(t, float32(2), Fixed[float32](2).Or(1))

	dyn := Dynamic[float32]()
	assert.True(t, dyn.IsDynamic())
	assert.Equal(t, float32(1), dyn.Or(1))
}

func TestRasterDynamicStates(t *testing.T) {
	r := RasterState{}
	assert.Equal(t, []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}, r.dynamicStates(true))

	r = RasterState{
		Topology:    Dynamic[vk.PrimitiveTopology](),
		PolygonMode: Dynamic[vk.PolygonMode](),
		CullMode:    Dynamic[vk.CullModeFlags](),
		FrontFace:   Fixed(vk.FrontFaceClockwise),
		LineWidth:   Dynamic[float32](),
	}
	assert.Equal(t, []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		DynamicStatePrimitiveTopology,
		DynamicStatePolygonMode,
		DynamicStateCullMode,
		vk.DynamicStateLineWidth,
	}, r.dynamicStates(true))

	assert.NotContains(t, r.dynamicStates(false), DynamicStatePrimitiveTopology, "mesh pipelines have no topology")
}

func TestRasterizationState(t *testing.T) {
	r := RasterState{}
	s := r.rasterizationState()
	assert.Equal(t, vk.PolygonModeFill, s.PolygonMode)
	assert.Equal(t, float32(1), s.LineWidth)
	assert.Equal(t, vk.CullModeFlags(vk.CullModeNone), s.CullMode)
	assert.Equal(t, vk.FrontFaceCounterClockwise, s.FrontFace)

	r.CullMode = Fixed(vk.CullModeFlags(vk.CullModeBackBit))
	r.PolygonMode = Dynamic[vk.PolygonMode]()
	s = r.rasterizationState()
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), s.CullMode)
	assert.Equal(t, vk.PolygonModeFill, s.PolygonMode, "dynamic fields bake their default")
}

func TestBlendAttachments(t *testing.T) {
	r := RasterState{}
	opaque := r.blendAttachments(2)
	require.Len(t, opaque, 2)
	assert.Equal(t, vk.Bool32(vk.False), opaque[1].BlendEnable)

	r.AlphaBlending = true
	blended := r.blendAttachments(1)
	assert.Equal(t, vk.Bool32(vk.True), blended[0].BlendEnable)
	assert.Equal(t, vk.BlendFactorSrcAlpha, blended[0].SrcColorBlendFactor)
	assert.Equal(t, vk.BlendFactorOneMinusSrcAlpha, blended[0].DstColorBlendFactor)
}

func TestVertexAttributes(t *testing.T) {
	attrs, err := vertexAttributes([]vk.Format{vk.FormatR32g32b32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR8g8b8a8Unorm})
	require.NoError(t, err)
	require.Len(t, attrs, 3)
	for i, want := range []uint32{0, 12, 20} {
		assert.EqualValues(t, i, attrs[i].Location)
		assert.Equal(t, want, attrs[i].Offset)
	}

	_, err = vertexAttributes([]vk.Format{vk.FormatUndefined})
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	assert.EqualValues(t, 4, FormatSize(vk.FormatB8g8r8a8Unorm))
	assert.EqualValues(t, 12, FormatSize(vk.FormatR32g32b32Sfloat))
	assert.EqualValues(t, 16, FormatSize(vk.FormatR32g32b32a32Sfloat))
	assert.EqualValues(t, 0, FormatSize(vk.FormatUndefined))
}

func TestRecursionDepth(t *testing.T) {
	assert.EqualValues(t, 4, recursionDepth(0, 31))
	assert.EqualValues(t, 2, recursionDepth(2, 31))
	assert.EqualValues(t, 1, recursionDepth(8, 1))
	assert.EqualValues(t, 8, recursionDepth(8, 0))
}

func TestShaderGroups(t *testing.T) {
	raygen := &Shader{Stage: ShaderStageRaygenBit, EntryPoint: "main"}
	miss := &Shader{Stage: ShaderStageMissBit, EntryPoint: "main"}
	shadow := &Shader{Stage: ShaderStageMissBit, EntryPoint: "main"}
	hit := &Shader{Stage: ShaderStageClosestHitBit, EntryPoint: "main"}
	anyHit := &Shader{Stage: ShaderStageAnyHitBit, EntryPoint: "main"}

	info := RayTracingPipelineCreateInfo{
		RaygenShader: raygen,
		MissShaders:  []*Shader{miss, shadow},
		HitGroups:    []HitGroup{{ClosestHit: hit}, {ClosestHit: hit, AnyHit: anyHit}},
	}
	require.NoError(t, info.validate())

	stages, groups := info.shaderGroups()
	assert.Len(t, stages, 6)
	require.Len(t, groups, 5)

	assert.Equal(t, ShaderGroup{Type: ShaderGroupGeneral, General: 0,
		ClosestHit: ShaderUnused, AnyHit: ShaderUnused, Intersection: ShaderUnused}, groups[0])
	assert.EqualValues(t, 2, groups[2].General)
	assert.Equal(t, ShaderGroupTrianglesHit, groups[3].Type)
	assert.EqualValues(t, 3, groups[3].ClosestHit)
	assert.Equal(t, ShaderUnused, groups[3].AnyHit)
	assert.EqualValues(t, 4, groups[4].ClosestHit)
	assert.EqualValues(t, 5, groups[4].AnyHit)
	assert.Equal(t, ShaderStageAnyHitBit, stages[5].Stage)
}

func TestRayTracingPipelineValidate(t *testing.T) {
	assert.Error(t, (&RayTracingPipelineCreateInfo{}).validate())

	raygen := &Shader{}
	assert.Error(t, (&RayTracingPipelineCreateInfo{RaygenShader: raygen, MissShaders: []*Shader{nil}}).validate())
	assert.Error(t, (&RayTracingPipelineCreateInfo{RaygenShader: raygen, HitGroups: []HitGroup{{}}}).validate())

	_, err := (&Context{}).CreateRayTracingPipeline(RayTracingPipelineCreateInfo{RaygenShader: raygen})
	assert.True(t, errors.Is(err, ErrExtensionProcs))
}

func TestExtendedDynamicStatesNeedFeature(t *testing.T) {
	sh := &Shader{}
	info := GraphicsPipelineCreateInfo{
		VertexShader:   sh,
		FragmentShader: sh,
		RasterState:    RasterState{CullMode: Dynamic[vk.CullModeFlags]()},
	}
	_, err := (&Context{}).CreateGraphicsPipeline(info)
	assert.True(t, errors.Is(err, ErrFeatureDisabled))

	c := &Context{Config: ContextConfig{ExtendedDynamicState: true}}
	_, err = c.CreateGraphicsPipeline(info)
	assert.True(t, errors.Is(err, ErrExtensionProcs))

	c.procs = &fakeProcs{}
	assert.NoError(t, c.checkDynamicStates(&info.RasterState, true))

	_, err = (&Context{}).CreateMeshShaderPipeline(MeshShaderPipelineCreateInfo{
		MeshShader:     sh,
		FragmentShader: sh,
		RasterState:    RasterState{PolygonMode: Dynamic[vk.PolygonMode]()},
	})
	assert.True(t, errors.Is(err, ErrFeatureDisabled))

	core := RasterState{LineWidth: Dynamic[float32](), Topology: Dynamic[vk.PrimitiveTopology]()}
	assert.Empty(t, core.extendedStates(false), "line width is core and mesh pipelines drop topology")
	assert.Equal(t, []vk.DynamicState{DynamicStatePrimitiveTopology}, core.extendedStates(true))
}
