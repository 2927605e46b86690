package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const defaultMaxRayRecursionDepth = 4

type HitGroup struct {
	ClosestHit *Shader
	// AnyHit is optional
	AnyHit *Shader
}

type RayTracingPipelineCreateInfo struct {
	DescriptorSet *DescriptorSet
	PushSize      uint32

	RaygenShader *Shader
	MissShaders  []*Shader
	HitGroups    []HitGroup

	// MaxRayRecursionDepth defaults to 4 and is clamped to the device limit
	MaxRayRecursionDepth uint32
}

// shaderGroups returns the stages and one group per raygen, miss and hit
// entry, in that order. Group i owns handle i of the shader binding table.
func (info *RayTracingPipelineCreateInfo) shaderGroups() ([]vk.PipelineShaderStageCreateInfo, []ShaderGroup) {
	var stages []vk.PipelineShaderStageCreateInfo
	var groups []ShaderGroup

	add := func(s *Shader) uint32 {
		stages = append(stages, s.VKPipelineShaderStageCreateInfo())
		return uint32(len(stages) - 1)
	}
	general := func(s *Shader) ShaderGroup {
		return ShaderGroup{
			Type:         ShaderGroupGeneral,
			General:      add(s),
			ClosestHit:   ShaderUnused,
			AnyHit:       ShaderUnused,
			Intersection: ShaderUnused,
		}
	}

	groups = append(groups, general(info.RaygenShader))
	for _, s := range info.MissShaders {
		groups = append(groups, general(s))
	}
	for _, h := range info.HitGroups {
		g := ShaderGroup{
			Type:         ShaderGroupTrianglesHit,
			General:      ShaderUnused,
			ClosestHit:   add(h.ClosestHit),
			AnyHit:       ShaderUnused,
			Intersection: ShaderUnused,
		}
		if h.AnyHit != nil {
			g.AnyHit = add(h.AnyHit)
		}
		groups = append(groups, g)
	}
	return stages, groups
}

func (info *RayTracingPipelineCreateInfo) validate() error {
	if info.RaygenShader == nil {
		return errors.New("ray tracing pipeline needs a raygen shader")
	}
	for i, s := range info.MissShaders {
		if s == nil {
			return errors.Errorf("miss shader %d is nil", i)
		}
	}
	for i, h := range info.HitGroups {
		if h.ClosestHit == nil {
			return errors.Errorf("hit group %d has no closest hit shader", i)
		}
	}
	return nil
}

// recursionDepth returns the requested depth, clamped to limit when the
// device reports one.
func recursionDepth(requested, limit uint32) uint32 {
	if requested == 0 {
		requested = defaultMaxRayRecursionDepth
	}
	if limit != 0 && requested > limit {
		return limit
	}
	return requested
}

// CreateRayTracingPipeline creates the pipeline and its shader binding table.
func (c *Context) CreateRayTracingPipeline(info RayTracingPipelineCreateInfo) (*Pipeline, error) {
	if err := info.validate(); err != nil {
		return nil, err
	}
	if err := requireProcs(c.procs, "ray tracing pipeline"); err != nil {
		return nil, err
	}

	p := newPipeline(c.Device, PipelineRayTracing, info.PushSize)
	return c.buildPipeline(p, info.DescriptorSet, func() error {
		props := c.procs.RayTracingProperties(c.Device.PhysicalDevice.VKPhysicalDevice)
		stages, groups := info.shaderGroups()

		pipeline, err := c.procs.CreateRayTracingPipeline(c.Device.VKDevice, &RayTracingPipelineInfo{
			Stages:            stages,
			Groups:            groups,
			MaxRecursionDepth: recursionDepth(info.MaxRayRecursionDepth, props.MaxRayRecursionDepth),
			Layout:            p.Layout.VKPipelineLayout,
		})
		if err != nil {
			return err
		}

		sbt, err := c.createShaderBindingTable(pipeline, 1, uint32(len(info.MissShaders)), uint32(len(info.HitGroups)))
		if err != nil {
			vk.DestroyPipeline(c.Device.VKDevice, pipeline, nil)
			return err
		}
		p.VKPipeline = pipeline
		p.SBT = sbt
		return nil
	})
}
