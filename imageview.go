package vulkaninja

import (
	vk "github.com/vulkan-go/vulkan"
)

type ImageViewCreateInfo struct {
	// Aspect defaults to the aspect of the image format
	Aspect vk.ImageAspectFlags
}

type ImageView struct {
	Device      *Device
	VKImageView vk.ImageView
}

func (i *Image) viewType() vk.ImageViewType {
	if i.Extent.Depth > 1 {
		return vk.ImageViewType3d
	}
	return vk.ImageViewType2d
}

// CreateImageView creates a view covering every mip level of the image
func (i *Image) CreateImageView(info ImageViewCreateInfo) (*ImageView, error) {
	rng := i.subresourceRange()
	if info.Aspect != 0 {
		rng.AspectMask = info.Aspect
	}
	return i.Device.CreateImageView(i.VKImage, i.VKFormat, i.viewType(), rng)
}

func (d *Device) CreateImageView(image vk.Image, format vk.Format, t vk.ImageViewType, rng vk.ImageSubresourceRange) (*ImageView, error) {
	createImage := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: t,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: rng,
	}

	var view vk.ImageView
	err := vkErr(vk.CreateImageView(d.VKDevice, createImage, nil, &view), "create image view")
	if err != nil {
		return nil, err
	}
	return &ImageView{Device: d, VKImageView: view}, nil
}

func (i *ImageView) Destroy() {
	vk.DestroyImageView(i.Device.VKDevice, i.VKImageView, nil)
}
