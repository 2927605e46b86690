package vulkaninja

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/zzxzzk115/vulkaninja/spirv"
)

func TestCollectDescriptorsMergesStages(t *testing.T) {
	descriptors, err := collectDescriptors([]StageResources{
		{Stage: vk.ShaderStageVertexBit, Resources: []spirv.Resource{
			{Name: "camera", Kind: spirv.UniformBuffer, Binding: 0, Count: 1},
		}},
		{Stage: vk.ShaderStageFragmentBit, Resources: []spirv.Resource{
			{Name: "camera", Kind: spirv.UniformBuffer, Binding: 0, Count: 1},
			{Name: "textures", Kind: spirv.SampledImage, Binding: 1, Count: 4},
			{Name: "lights", Kind: spirv.StorageBuffer, Binding: 2, Count: 0},
		}},
	})
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	camera := descriptors["camera"]
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, camera.Type)
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit), camera.StageFlags)

	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, descriptors["textures"].Type)
	assert.EqualValues(t, 4, descriptors["textures"].Count)
	assert.EqualValues(t, 1, descriptors["lights"].Count, "runtime arrays default to one descriptor")
}

func TestCollectDescriptorsBindingMismatch(t *testing.T) {
	_, err := collectDescriptors([]StageResources{
		{Stage: vk.ShaderStageVertexBit, Resources: []spirv.Resource{
			{Name: "camera", Kind: spirv.UniformBuffer, Binding: 0},
		}},
		{Stage: vk.ShaderStageFragmentBit, Resources: []spirv.Resource{
			{Name: "camera", Kind: spirv.UniformBuffer, Binding: 3},
		}},
	})
	assert.True(t, errors.Is(err, ErrBindingMismatch))
}

func TestDescriptorTypeOf(t *testing.T) {
	for k, want := range map[spirv.Kind]vk.DescriptorType{
		spirv.UniformBuffer:         vk.DescriptorTypeUniformBuffer,
		spirv.StorageBuffer:         vk.DescriptorTypeStorageBuffer,
		spirv.StorageImage:          vk.DescriptorTypeStorageImage,
		spirv.SampledImage:          vk.DescriptorTypeCombinedImageSampler,
		spirv.SeparateImage:         vk.DescriptorTypeSampledImage,
		spirv.SeparateSampler:       vk.DescriptorTypeSampler,
		spirv.AccelerationStructure: DescriptorTypeAccelerationStructure,
	} {
		got, ok := DescriptorTypeOf(k)
		assert.True(t, ok, k.String())
		assert.Equal(t, want, got, k.String())
	}
	_, ok := DescriptorTypeOf(spirv.Kind(99))
	assert.False(t, ok)
}

func testSet() *DescriptorSet {
	return &DescriptorSet{Descriptors: map[string]*Descriptor{
		"scene":    {Name: "scene", Binding: 2, Type: DescriptorTypeAccelerationStructure, Count: 1},
		"camera":   {Name: "camera", Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1},
		"textures": {Name: "textures", Binding: 1, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1},
		"unused":   {Name: "unused", Binding: 3, Type: vk.DescriptorTypeStorageBuffer, Count: 1},
	}}
}

func TestDescriptorSetBindingsOrdered(t *testing.T) {
	var got []uint32
	for _, d := range testSet().Bindings() {
		got = append(got, d.Binding)
	}
	assert.Equal(t, []uint32{0, 1, 2, 3}, got)
}

func TestDescriptorSetSetters(t *testing.T) {
	s := testSet()

	require.NoError(t, s.SetBuffers("camera", &Buffer{Size: 64}))
	require.NoError(t, s.SetImages("textures", &Image{Layout: vk.ImageLayoutShaderReadOnlyOptimal},
		&Image{Layout: vk.ImageLayoutShaderReadOnlyOptimal}, &Image{}))
	require.NoError(t, s.SetAccels("scene", &TopAccel{accelCommon: accelCommon{Handle: 7}}))

	assert.EqualValues(t, 3, s.Descriptors["textures"].Count, "the last set is authoritative")

	writes, accels := s.writes()
	require.Len(t, writes, 2)
	assert.EqualValues(t, 0, writes[0].DstBinding)
	assert.EqualValues(t, 1, writes[0].DescriptorCount)
	assert.Equal(t, vk.DeviceSize(64), writes[0].PBufferInfo[0].Range)
	assert.EqualValues(t, 1, writes[1].DstBinding)
	assert.EqualValues(t, 3, writes[1].DescriptorCount)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, writes[1].PImageInfo[0].ImageLayout)

	require.Len(t, accels, 1)
	assert.Equal(t, []AccelHandle{7}, accels[0].accels)

	err := s.SetBuffers("missing")
	assert.True(t, errors.Is(err, ErrUnknownDescriptor))
}

func TestDescriptorSetLayoutFitsCounts(t *testing.T) {
	s := testSet()
	s.Device = &Device{}
	s.Descriptors["textures"].Count = 4

	layout := s.layout(nil)
	require.Len(t, layout.VKDescriptorSetLayoutBindings, 4)
	for i, b := range layout.VKDescriptorSetLayoutBindings {
		assert.EqualValues(t, i, b.Binding)
	}
	assert.EqualValues(t, 4, layout.Capacity(1))
	assert.EqualValues(t, 1, layout.Capacity(0))
	assert.Zero(t, layout.Capacity(9))
}

func TestDescriptorSetGrowsPastLayout(t *testing.T) {
	s := testSet()
	s.Device = &Device{}
	s.Layout = s.layout(nil)
	assert.False(t, s.outgrown())

	require.NoError(t, s.SetImages("textures", &Image{}, &Image{}, &Image{}))
	assert.True(t, s.outgrown(), "three images do not fit a binding of one")

	grown := s.layout(s.Layout)
	assert.EqualValues(t, 3, grown.Capacity(1))

	require.NoError(t, s.SetImages("textures", &Image{}))
	assert.EqualValues(t, 1, s.Descriptors["textures"].Count)
	assert.EqualValues(t, 3, s.layout(grown).Capacity(1), "shrinking keeps the reserved room")

	s.Layout = grown
	assert.False(t, s.outgrown())
}

func TestDescriptorSetLayoutAddBinding(t *testing.T) {
	l := (&Device{}).NewDescriptorSetLayout()
	l.AddBinding(vk.DescriptorSetLayoutBinding{Binding: 2, DescriptorCount: 1})
	l.AddBinding(vk.DescriptorSetLayoutBinding{Binding: 0, DescriptorCount: 1})
	l.AddBinding(vk.DescriptorSetLayoutBinding{Binding: 2, DescriptorCount: 5})

	require.Len(t, l.VKDescriptorSetLayoutBindings, 2)
	assert.EqualValues(t, 0, l.VKDescriptorSetLayoutBindings[0].Binding)
	assert.EqualValues(t, 5, l.Capacity(2), "same index replaces")
}

func TestDescriptorSetUpdateAccelsNeedProcs(t *testing.T) {
	s := testSet()
	require.NoError(t, s.SetAccels("scene", &TopAccel{accelCommon: accelCommon{Handle: 1}}))
	assert.True(t, errors.Is(s.Update(), ErrExtensionProcs))

	procs := &fakeProcs{}
	s = testSet()
	s.Device = &Device{}
	s.procs = procs
	require.NoError(t, s.SetAccels("scene", &TopAccel{accelCommon: accelCommon{Handle: 5}}))
	require.NoError(t, s.Update())
	assert.Equal(t, []AccelHandle{5}, procs.written[2])
}
