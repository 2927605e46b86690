package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Dynamic states outside of Vulkan 1.1. Recording them needs ExtensionProcs.
const (
	DynamicStateCullMode          vk.DynamicState = 1000267000
	DynamicStateFrontFace         vk.DynamicState = 1000267001
	DynamicStatePrimitiveTopology vk.DynamicState = 1000267002
	DynamicStatePolygonMode       vk.DynamicState = 1000455003
)

// DynamicValue is a pipeline field which is either baked into the pipeline or
// left to be set while recording. The zero value means the field default.
type DynamicValue[T any] struct {
	value   T
	set     bool
	dynamic bool
}

// Fixed bakes v into the pipeline
func Fixed[T any](v T) DynamicValue[T] {
	return DynamicValue[T]{value: v, set: true}
}

// Dynamic leaves the field to the command buffer
func Dynamic[T any]() DynamicValue[T] {
	return DynamicValue[T]{dynamic: true}
}

func (d DynamicValue[T]) IsDynamic() bool {
	return d.dynamic
}

// Or returns the fixed value, or def when the field is dynamic or unset
func (d DynamicValue[T]) Or(def T) T {
	if d.set {
		return d.value
	}
	return def
}

// RasterState is the fixed function state shared by graphics and mesh shader
// pipelines.
type RasterState struct {
	// Topology is ignored by mesh shader pipelines
	Topology    DynamicValue[vk.PrimitiveTopology]
	PolygonMode DynamicValue[vk.PolygonMode]
	CullMode    DynamicValue[vk.CullModeFlags]
	FrontFace   DynamicValue[vk.FrontFace]
	LineWidth   DynamicValue[float32]

	AlphaBlending bool
}

// dynamicStates lists the states recorded per draw. Viewport and scissor are
// always dynamic.
func (r *RasterState) dynamicStates(topology bool) []vk.DynamicState {
	ret := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	if topology && r.Topology.IsDynamic() {
		ret = append(ret, DynamicStatePrimitiveTopology)
	}
	if r.PolygonMode.IsDynamic() {
		ret = append(ret, DynamicStatePolygonMode)
	}
	if r.FrontFace.IsDynamic() {
		ret = append(ret, DynamicStateFrontFace)
	}
	if r.CullMode.IsDynamic() {
		ret = append(ret, DynamicStateCullMode)
	}
	if r.LineWidth.IsDynamic() {
		ret = append(ret, vk.DynamicStateLineWidth)
	}
	return ret
}

// extendedStates returns the dynamic states which need extended dynamic state
func (r *RasterState) extendedStates(topology bool) []vk.DynamicState {
	var ret []vk.DynamicState
	for _, s := range r.dynamicStates(topology) {
		switch s {
		case DynamicStateCullMode, DynamicStateFrontFace, DynamicStatePrimitiveTopology, DynamicStatePolygonMode:
			ret = append(ret, s)
		}
	}
	return ret
}

// checkDynamicStates fails when r leaves a state to the command buffer that
// the device was not created for.
func (c *Context) checkDynamicStates(r *RasterState, topology bool) error {
	states := r.extendedStates(topology)
	if len(states) == 0 {
		return nil
	}
	if !c.Config.ExtendedDynamicState {
		return errors.Wrapf(ErrFeatureDisabled, "extended dynamic state %v", states)
	}
	return requireProcs(c.procs, "extended dynamic state")
}

func (r *RasterState) rasterizationState() vk.PipelineRasterizationStateCreateInfo {
	var rasterState = vk.PipelineRasterizationStateCreateInfo{}
	rasterState.SType = vk.StructureTypePipelineRasterizationStateCreateInfo
	rasterState.DepthClampEnable = vk.False
	rasterState.RasterizerDiscardEnable = vk.False
	rasterState.PolygonMode = r.PolygonMode.Or(vk.PolygonModeFill)
	rasterState.LineWidth = r.LineWidth.Or(1.0)
	rasterState.CullMode = r.CullMode.Or(vk.CullModeFlags(vk.CullModeNone))
	rasterState.FrontFace = r.FrontFace.Or(vk.FrontFaceCounterClockwise)
	rasterState.DepthBiasEnable = vk.False
	return rasterState
}

func (r *RasterState) blendAttachments(count int) []vk.PipelineColorBlendAttachmentState {
	ret := make([]vk.PipelineColorBlendAttachmentState, count)
	for i := range ret {
		ret[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
			BlendEnable:    vk.False,
		}
		if r.AlphaBlending {
			ret[i].BlendEnable = vk.True
			ret[i].SrcColorBlendFactor = vk.BlendFactorSrcAlpha
			ret[i].DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
			ret[i].ColorBlendOp = vk.BlendOpAdd
			ret[i].SrcAlphaBlendFactor = vk.BlendFactorOne
			ret[i].DstAlphaBlendFactor = vk.BlendFactorZero
			ret[i].AlphaBlendOp = vk.BlendOpAdd
		}
	}
	return ret
}
