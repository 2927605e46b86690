package vulkaninja

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// PipelineBindPointRayTracing is VK_PIPELINE_BIND_POINT_RAY_TRACING_KHR
const PipelineBindPointRayTracing vk.PipelineBindPoint = 1000165000

type PipelineKind int

const (
	PipelineGraphics PipelineKind = iota
	PipelineCompute
	PipelineMeshShader
	PipelineRayTracing
)

func (k PipelineKind) String() string {
	switch k {
	case PipelineGraphics:
		return "Graphics"
	case PipelineCompute:
		return "Compute"
	case PipelineMeshShader:
		return "MeshShader"
	case PipelineRayTracing:
		return "RayTracing"
	}
	return fmt.Sprintf("PipelineKind(%d)", int(k))
}

// BindPoint returns where pipelines of the kind are bound
func (k PipelineKind) BindPoint() vk.PipelineBindPoint {
	switch k {
	case PipelineCompute:
		return vk.PipelineBindPointCompute
	case PipelineRayTracing:
		return PipelineBindPointRayTracing
	}
	return vk.PipelineBindPointGraphics
}

// StageFlags returns the stages push constants and descriptors of the kind
// are visible to.
func (k PipelineKind) StageFlags() vk.ShaderStageFlags {
	switch k {
	case PipelineGraphics:
		return vk.ShaderStageFlags(vk.ShaderStageAllGraphics)
	case PipelineCompute:
		return vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	case PipelineMeshShader:
		return vk.ShaderStageFlags(ShaderStageTaskBit | ShaderStageMeshBit | vk.ShaderStageFragmentBit)
	case PipelineRayTracing:
		return vk.ShaderStageFlags(ShaderStageRaygenBit | ShaderStageMissBit | ShaderStageClosestHitBit |
			ShaderStageAnyHitBit | ShaderStageIntersectionBit | ShaderStageCallableBit)
	}
	return 0
}

// Pipeline is a compiled pipeline of any kind with its layout. Graphics and
// mesh shader pipelines carry the render pass describing their targets, ray
// tracing pipelines carry their shader binding table.
type Pipeline struct {
	Device     *Device
	Kind       PipelineKind
	VKPipeline vk.Pipeline
	Layout     *PipelineLayout
	BindPoint  vk.PipelineBindPoint
	StageFlags vk.ShaderStageFlags
	PushSize   uint32
	// DynamicStates lists the states that must be set while recording
	DynamicStates []vk.DynamicState

	RenderPass *RenderPass
	SBT        *ShaderBindingTable

	setLayout vk.DescriptorSetLayout
}

func newPipeline(d *Device, kind PipelineKind, pushSize uint32) *Pipeline {
	return &Pipeline{
		Device:     d,
		Kind:       kind,
		BindPoint:  kind.BindPoint(),
		StageFlags: kind.StageFlags(),
		PushSize:   pushSize,
	}
}

// createLayout creates the pipeline layout over an optional descriptor set
func (p *Pipeline) createLayout(set *DescriptorSet) error {
	var setLayouts []vk.DescriptorSetLayout
	if set != nil {
		setLayouts = []vk.DescriptorSetLayout{set.VKDescriptorSetLayout()}
		p.setLayout = set.VKDescriptorSetLayout()
	}
	layout, err := p.Device.CreatePipelineLayout(setLayouts, pushConstantRanges(p.PushSize, p.StageFlags))
	if err != nil {
		return err
	}
	p.Layout = layout
	return nil
}

// ShaderBindingTable returns the table of a ray tracing pipeline
func (p *Pipeline) ShaderBindingTable() (*ShaderBindingTable, error) {
	switch p.Kind {
	case PipelineRayTracing:
		return p.SBT, nil
	case PipelineGraphics, PipelineCompute, PipelineMeshShader:
		return nil, errors.Wrapf(ErrPipelineKind, "%s pipeline has no shader binding table", p.Kind)
	}
	return nil, errors.Wrapf(ErrPipelineKind, "%s", p.Kind)
}

func (p *Pipeline) Destroy() {
	switch p.Kind {
	case PipelineRayTracing:
		if p.SBT != nil {
			p.SBT.Destroy()
		}
	case PipelineGraphics, PipelineMeshShader:
		if p.RenderPass != nil {
			p.RenderPass.Destroy()
		}
	case PipelineCompute:
	}
	vk.DestroyPipeline(p.Device.VKDevice, p.VKPipeline, nil)
	if p.Layout != nil {
		p.Layout.Destroy()
	}
}

type PipelineCache struct {
	Device          *Device
	VKPipelineCache vk.PipelineCache
}

func (d *Device) CreatePipelineCache() (*PipelineCache, error) {
	var pipelineCacheCreate = vk.PipelineCacheCreateInfo{}
	pipelineCacheCreate.SType = vk.StructureTypePipelineCacheCreateInfo

	var pipelineCache vk.PipelineCache

	err := vkErr(vk.CreatePipelineCache(d.VKDevice, &pipelineCacheCreate, nil, &pipelineCache), "create pipeline cache")
	if err != nil {
		return nil, err
	}

	return &PipelineCache{Device: d, VKPipelineCache: pipelineCache}, nil
}

func (p *PipelineCache) Destroy() {
	vk.DestroyPipelineCache(p.Device.VKDevice, p.VKPipelineCache, nil)
}

// graphicsStates holds the state blocks shared by graphics and mesh shader
// pipelines. The slices must stay alive until the pipeline is created.
type graphicsStates struct {
	viewport      vk.PipelineViewportStateCreateInfo
	raster        vk.PipelineRasterizationStateCreateInfo
	multisample   vk.PipelineMultisampleStateCreateInfo
	depthStencil  vk.PipelineDepthStencilStateCreateInfo
	colorBlend    vk.PipelineColorBlendStateCreateInfo
	dynamic       vk.PipelineDynamicStateCreateInfo
	dynamicStates []vk.DynamicState
}

func newGraphicsStates(r *RasterState, colorCount int, topology bool) *graphicsStates {
	s := &graphicsStates{}

	s.viewport = vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	s.raster = r.rasterizationState()

	s.multisample = vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	s.depthStencil = vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
		StencilTestEnable:     vk.False,
	}

	blendAttachments := r.blendAttachments(colorCount)
	s.colorBlend = vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	s.dynamicStates = r.dynamicStates(topology)
	s.dynamic = vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(s.dynamicStates)),
		PDynamicStates:    s.dynamicStates,
	}
	return s
}

// createGraphics compiles a graphics pipeline create info against the
// pipeline's render pass.
func (c *Context) createGraphics(p *Pipeline, info vk.GraphicsPipelineCreateInfo) error {
	info.SType = vk.StructureTypeGraphicsPipelineCreateInfo
	info.Layout = p.Layout.VKPipelineLayout
	info.RenderPass = p.RenderPass.VKRenderPass
	info.Subpass = 0

	pipelines := make([]vk.Pipeline, 1)
	err := vkErr(vk.CreateGraphicsPipelines(c.Device.VKDevice, c.pipelineCache(), 1,
		[]vk.GraphicsPipelineCreateInfo{info}, nil, pipelines), "create graphics pipeline")
	if err != nil {
		return err
	}
	p.VKPipeline = pipelines[0]
	return nil
}

// buildPipeline runs the kind specific steps after the layout exists and
// releases everything created so far when one fails.
func (c *Context) buildPipeline(p *Pipeline, set *DescriptorSet, build func() error) (*Pipeline, error) {
	if err := p.createLayout(set); err != nil {
		return nil, err
	}
	if err := build(); err != nil {
		if p.RenderPass != nil {
			p.RenderPass.Destroy()
		}
		p.Layout.Destroy()
		return nil, errors.Wrapf(err, "%s pipeline", p.Kind)
	}
	c.log.Debug("created pipeline", "kind", p.Kind.String(), "push", p.PushSize, "dynamic", len(p.DynamicStates))
	return p, nil
}
