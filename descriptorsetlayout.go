package vulkaninja

import (
	"sort"

	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSetLayout describes the layout of a descriptorset
type DescriptorSetLayout struct {
	Device                        *Device
	VKDescriptorSetLayout         vk.DescriptorSetLayout
	VKDescriptorSetLayoutBindings []vk.DescriptorSetLayoutBinding
}

func (d *Device) NewDescriptorSetLayout() *DescriptorSetLayout {
	return &DescriptorSetLayout{Device: d}
}

// AddBinding adds a binding to the layout. A binding with the same index is
// replaced. Bindings are kept sorted by index.
func (d *DescriptorSetLayout) AddBinding(binding vk.DescriptorSetLayoutBinding) {
	for i := range d.VKDescriptorSetLayoutBindings {
		if d.VKDescriptorSetLayoutBindings[i].Binding == binding.Binding {
			d.VKDescriptorSetLayoutBindings[i] = binding
			return
		}
	}
	d.VKDescriptorSetLayoutBindings = append(d.VKDescriptorSetLayoutBindings, binding)
	sort.Slice(d.VKDescriptorSetLayoutBindings, func(i, j int) bool {
		return d.VKDescriptorSetLayoutBindings[i].Binding < d.VKDescriptorSetLayoutBindings[j].Binding
	})
}

// Capacity returns the number of descriptors the layout reserves for
// binding, 0 when the binding is not part of the layout.
func (d *DescriptorSetLayout) Capacity(binding uint32) uint32 {
	for _, b := range d.VKDescriptorSetLayoutBindings {
		if b.Binding == binding {
			return b.DescriptorCount
		}
	}
	return 0
}

// Destroy destroys this descriptor set layout
func (d *DescriptorSetLayout) Destroy() {
	if d.VKDescriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(d.Device.VKDevice, d.VKDescriptorSetLayout, nil)
		d.VKDescriptorSetLayout = vk.NullDescriptorSetLayout
	}
}

// CreateDescriptorSetLayout creates this descriptor set layout
func (d *Device) CreateDescriptorSetLayout(layout *DescriptorSetLayout) (*DescriptorSetLayout, error) {
	var descriptorSetLayoutCreateInfo = &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layout.VKDescriptorSetLayoutBindings)),
		PBindings:    layout.VKDescriptorSetLayoutBindings,
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	err := vkErr(vk.CreateDescriptorSetLayout(d.VKDevice, descriptorSetLayoutCreateInfo, nil, &descriptorSetLayout),
		"create descriptor set layout")
	if err != nil {
		return nil, err
	}

	layout.Device = d
	layout.VKDescriptorSetLayout = descriptorSetLayout

	return layout, nil
}
