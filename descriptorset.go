package vulkaninja

import (
	"sort"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/zzxzzk115/vulkaninja/spirv"
)

// DescriptorTypeOf maps a reflected resource category to its descriptor type.
// Sampled images are bound as combined image samplers.
func DescriptorTypeOf(k spirv.Kind) (vk.DescriptorType, bool) {
	switch k {
	case spirv.UniformBuffer:
		return vk.DescriptorTypeUniformBuffer, true
	case spirv.StorageBuffer:
		return vk.DescriptorTypeStorageBuffer, true
	case spirv.StorageImage:
		return vk.DescriptorTypeStorageImage, true
	case spirv.SampledImage:
		return vk.DescriptorTypeCombinedImageSampler, true
	case spirv.SeparateImage:
		return vk.DescriptorTypeSampledImage, true
	case spirv.SeparateSampler:
		return vk.DescriptorTypeSampler, true
	case spirv.AccelerationStructure:
		return DescriptorTypeAccelerationStructure, true
	}
	return 0, false
}

// Descriptor is one named binding of a DescriptorSet and the resources
// currently assigned to it.
type Descriptor struct {
	Name       string
	Binding    uint32
	Type       vk.DescriptorType
	Count      uint32
	StageFlags vk.ShaderStageFlags

	bufferInfos []vk.DescriptorBufferInfo
	imageInfos  []vk.DescriptorImageInfo
	accels      []AccelHandle
}

func (d *Descriptor) layoutBinding() vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         d.Binding,
		DescriptorType:  d.Type,
		DescriptorCount: d.Count,
		StageFlags:      d.StageFlags,
	}
}

// StageResources is the reflected interface of one shader stage
type StageResources struct {
	Stage     vk.ShaderStageFlagBits
	Resources []spirv.Resource
}

// collectDescriptors merges the resources of every stage by name. A name seen
// in several stages must use the same binding, its stage flags are combined.
func collectDescriptors(stages []StageResources) (map[string]*Descriptor, error) {
	descriptors := make(map[string]*Descriptor)
	for _, st := range stages {
		for _, r := range st.Resources {
			dtype, ok := DescriptorTypeOf(r.Kind)
			if !ok {
				continue
			}
			if d, ok := descriptors[r.Name]; ok {
				if d.Binding != r.Binding {
					return nil, errors.Wrapf(ErrBindingMismatch, "%s: binding %d in stage %#x, %d before",
						r.Name, r.Binding, uint32(st.Stage), d.Binding)
				}
				d.StageFlags |= vk.ShaderStageFlags(st.Stage)
				continue
			}
			count := r.Count
			if count == 0 {
				count = 1
			}
			descriptors[r.Name] = &Descriptor{
				Name:       r.Name,
				Binding:    r.Binding,
				Type:       dtype,
				Count:      count,
				StageFlags: vk.ShaderStageFlags(st.Stage),
			}
		}
	}
	return descriptors, nil
}

type DescriptorSetCreateInfo struct {
	Shaders []*Shader

	// Resources bound at creation, by reflected name
	Buffers map[string][]*Buffer
	Images  map[string][]*Image
	Accels  map[string][]*TopAccel

	// Counts pre-sizes array bindings whose resources are set later
	Counts map[string]uint32
}

// DescriptorSet is a single descriptor set whose layout is inferred from the
// reflected interface of its shaders.
//
// The set call for a binding decides its array length. Growing a binding past
// what the layout reserves makes the next Update recreate the layout and
// reallocate the set; pipelines built from the old layout have to be rebuilt.
type DescriptorSet struct {
	Device          *Device
	Pool            *DescriptorPool
	Layout          *DescriptorSetLayout
	VKDescriptorSet vk.DescriptorSet
	Descriptors     map[string]*Descriptor

	procs ExtensionProcs
}

func newDescriptorTable(info DescriptorSetCreateInfo) (*DescriptorSet, error) {
	var stages []StageResources
	for _, sh := range info.Shaders {
		mod, err := sh.Reflect()
		if err != nil {
			return nil, errors.Wrap(err, "reflect shader")
		}
		stages = append(stages, StageResources{Stage: sh.Stage, Resources: mod.Resources})
	}
	descriptors, err := collectDescriptors(stages)
	if err != nil {
		return nil, err
	}

	s := &DescriptorSet{Descriptors: descriptors}
	for name, count := range info.Counts {
		d, err := s.descriptor(name)
		if err != nil {
			return nil, err
		}
		d.Count = count
	}
	for name, buffers := range info.Buffers {
		if err := s.SetBuffers(name, buffers...); err != nil {
			return nil, err
		}
	}
	for name, images := range info.Images {
		if err := s.SetImages(name, images...); err != nil {
			return nil, err
		}
	}
	for name, accels := range info.Accels {
		if err := s.SetAccels(name, accels...); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CreateDescriptorSet reflects the shaders, creates the layout and allocates
// the set from the context's pool. Resources given in info are only recorded;
// call Update to write them.
func (c *Context) CreateDescriptorSet(info DescriptorSetCreateInfo) (*DescriptorSet, error) {
	s, err := newDescriptorTable(info)
	if err != nil {
		return nil, err
	}
	s.Device = c.Device
	s.Pool = c.DescriptorPool
	s.procs = c.procs
	if err := s.allocate(); err != nil {
		return nil, err
	}
	return s, nil
}

// layout lays out every binding with room for its current count. Bindings
// keep at least the room prev reserved for them.
func (s *DescriptorSet) layout(prev *DescriptorSetLayout) *DescriptorSetLayout {
	layout := s.Device.NewDescriptorSetLayout()
	for _, d := range s.Bindings() {
		b := d.layoutBinding()
		if prev != nil && prev.Capacity(d.Binding) > b.DescriptorCount {
			b.DescriptorCount = prev.Capacity(d.Binding)
		}
		layout.AddBinding(b)
	}
	return layout
}

// outgrown reports whether a binding holds more descriptors than the layout
// reserves for it.
func (s *DescriptorSet) outgrown() bool {
	if s.Layout == nil {
		return false
	}
	for _, d := range s.Descriptors {
		if d.Count > s.Layout.Capacity(d.Binding) {
			return true
		}
	}
	return false
}

// allocate creates a layout fitting the current counts and allocates the set
// from it, releasing the previous layout and set.
func (s *DescriptorSet) allocate() error {
	layout, err := s.Device.CreateDescriptorSetLayout(s.layout(s.Layout))
	if err != nil {
		return err
	}
	set, err := s.Pool.Allocate(layout.VKDescriptorSetLayout)
	if err != nil {
		layout.Destroy()
		return err
	}
	if s.Layout != nil {
		s.release()
		Logger().Debug("descriptor set layout grown", "bindings", len(layout.VKDescriptorSetLayoutBindings))
	}
	s.Layout = layout
	s.VKDescriptorSet = set
	return nil
}

func (s *DescriptorSet) descriptor(name string) (*Descriptor, error) {
	d, ok := s.Descriptors[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownDescriptor, name)
	}
	return d, nil
}

// Bindings returns the descriptors ordered by binding index
func (s *DescriptorSet) Bindings() []*Descriptor {
	ret := make([]*Descriptor, 0, len(s.Descriptors))
	for _, d := range s.Descriptors {
		ret = append(ret, d)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Binding < ret[j].Binding })
	return ret
}

// SetBuffers replaces the buffers of a binding. The binding count becomes len(buffers).
func (s *DescriptorSet) SetBuffers(name string, buffers ...*Buffer) error {
	d, err := s.descriptor(name)
	if err != nil {
		return err
	}
	infos := make([]vk.DescriptorBufferInfo, len(buffers))
	for i, b := range buffers {
		infos[i] = b.DescriptorInfo()
	}
	d.bufferInfos, d.imageInfos, d.accels = infos, nil, nil
	d.Count = uint32(len(buffers))
	return nil
}

// SetImages replaces the images of a binding. The binding count becomes len(images).
func (s *DescriptorSet) SetImages(name string, images ...*Image) error {
	d, err := s.descriptor(name)
	if err != nil {
		return err
	}
	infos := make([]vk.DescriptorImageInfo, len(images))
	for i, img := range images {
		infos[i] = img.DescriptorInfo()
	}
	d.bufferInfos, d.imageInfos, d.accels = nil, infos, nil
	d.Count = uint32(len(images))
	return nil
}

// SetAccels replaces the top level acceleration structures of a binding
func (s *DescriptorSet) SetAccels(name string, accels ...*TopAccel) error {
	d, err := s.descriptor(name)
	if err != nil {
		return err
	}
	handles := make([]AccelHandle, len(accels))
	for i, a := range accels {
		handles[i] = a.Handle
	}
	d.bufferInfos, d.imageInfos, d.accels = nil, nil, handles
	d.Count = uint32(len(accels))
	return nil
}

// writes builds one write per binding holding buffers or images. Bindings
// holding acceleration structures are returned separately.
func (s *DescriptorSet) writes() ([]vk.WriteDescriptorSet, []*Descriptor) {
	var ret []vk.WriteDescriptorSet
	var accels []*Descriptor
	for _, d := range s.Bindings() {
		w := vk.WriteDescriptorSet{
			SType:          vk.StructureTypeWriteDescriptorSet,
			DstSet:         s.VKDescriptorSet,
			DstBinding:     d.Binding,
			DescriptorType: d.Type,
		}
		switch {
		case len(d.bufferInfos) > 0:
			w.DescriptorCount = uint32(len(d.bufferInfos))
			w.PBufferInfo = d.bufferInfos
		case len(d.imageInfos) > 0:
			w.DescriptorCount = uint32(len(d.imageInfos))
			w.PImageInfo = d.imageInfos
		case len(d.accels) > 0:
			accels = append(accels, d)
			continue
		default:
			continue
		}
		ret = append(ret, w)
	}
	return ret, accels
}

// Update writes every assigned resource to the descriptor set. A binding set
// to more resources than the layout holds recreates the layout first.
func (s *DescriptorSet) Update() error {
	if s.outgrown() {
		if err := s.allocate(); err != nil {
			return errors.Wrap(err, "grow descriptor set")
		}
	}
	writes, accels := s.writes()
	if len(accels) > 0 {
		if err := requireProcs(s.procs, "write acceleration structure descriptor"); err != nil {
			return err
		}
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(s.Device.VKDevice, uint32(len(writes)), writes, 0, nil)
	}
	for _, d := range accels {
		s.procs.WriteAccelDescriptor(s.Device.VKDevice, s.VKDescriptorSet, d.Binding, d.accels)
	}
	return nil
}

// VKDescriptorSetLayout is the current layout handle, pipelines are built
// against it.
func (s *DescriptorSet) VKDescriptorSetLayout() vk.DescriptorSetLayout {
	if s.Layout == nil {
		return vk.NullDescriptorSetLayout
	}
	return s.Layout.VKDescriptorSetLayout
}

func (s *DescriptorSet) release() {
	if s.Pool != nil {
		if err := s.Pool.Free(s.VKDescriptorSet); err != nil {
			Logger().Warn("free descriptor set", "err", err)
		}
	}
	s.Layout.Destroy()
}

func (s *DescriptorSet) Destroy() {
	if s.Layout != nil {
		s.release()
		s.Layout = nil
	}
}
