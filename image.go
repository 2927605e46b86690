package vulkaninja

import (
	"math/bits"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// MipLevelsFull requests the complete mip chain for the image extent
const MipLevelsFull = ^uint32(0)

// Image usage presets.
var (
	ImageUsageSampled = vk.ImageUsageFlags(vk.ImageUsageSampledBit |
		vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit)
	ImageUsageStorage = vk.ImageUsageFlags(vk.ImageUsageStorageBit | vk.ImageUsageSampledBit |
		vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit)
	ImageUsageColorAttachment = vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit |
		vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)
	ImageUsageDepthAttachment = vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
)

// MipLevelCount returns the length of the full mip chain of a width x height image
func MipLevelCount(width, height uint32) uint32 {
	m := width
	if height > m {
		m = height
	}
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}

// IsDepthFormat reports whether format has a depth component
func IsDepthFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint,
		vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

type ImageCreateInfo struct {
	Usage vk.ImageUsageFlags
	// Images are 2D, or 3D when the extent depth is above 1
	Extent vk.Extent3D
	Format vk.Format

	// MipLevels defaults to 1, MipLevelsFull computes the chain length
	MipLevels uint32

	View    *ImageViewCreateInfo
	Sampler *SamplerCreateInfo

	Name string
}

// Image is a device local image with an optional view and sampler. Layout is
// the layout the last recorded transition left the image in.
type Image struct {
	Device     *Device
	VKImage    vk.Image
	VKFormat   vk.Format
	Extent     vk.Extent3D
	MipLevels  uint32
	LayerCount uint32
	Aspect     vk.ImageAspectFlags
	Layout     vk.ImageLayout
	View       *ImageView
	Sampler    *Sampler
	Name       string

	memory *DeviceMemory
	owned  bool
}

func (info *ImageCreateInfo) withDefaults() ImageCreateInfo {
	ret := *info
	if ret.Extent.Depth == 0 {
		ret.Extent.Depth = 1
	}
	switch ret.MipLevels {
	case 0:
		ret.MipLevels = 1
	case MipLevelsFull:
		ret.MipLevels = MipLevelCount(ret.Extent.Width, ret.Extent.Height)
	}
	return ret
}

func (c *Context) CreateImage(info ImageCreateInfo) (*Image, error) {
	info = info.withDefaults()

	var imageInfo = vk.ImageCreateInfo{}
	imageInfo.SType = vk.StructureTypeImageCreateInfo
	imageInfo.ImageType = vk.ImageType2d
	if info.Extent.Depth > 1 {
		imageInfo.ImageType = vk.ImageType3d
	}
	imageInfo.Extent = info.Extent
	imageInfo.MipLevels = info.MipLevels
	imageInfo.ArrayLayers = 1
	imageInfo.Format = info.Format
	imageInfo.Tiling = vk.ImageTilingOptimal
	imageInfo.InitialLayout = vk.ImageLayoutUndefined
	imageInfo.Usage = info.Usage
	imageInfo.Samples = vk.SampleCount1Bit
	imageInfo.SharingMode = vk.SharingModeExclusive

	var image vk.Image
	err := vkErr(vk.CreateImage(c.Device.VKDevice, &imageInfo, nil, &image), "create image")
	if err != nil {
		return nil, errors.Wrap(err, info.Name)
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(c.Device.VKDevice, image, &reqs)
	reqs.Deref()

	memory, err := c.Device.Allocate(reqs, MemoryDevice.PropertyFlags(), false)
	if err != nil {
		vk.DestroyImage(c.Device.VKDevice, image, nil)
		return nil, errors.Wrap(err, info.Name)
	}
	err = vkErr(vk.BindImageMemory(c.Device.VKDevice, image, memory.VKDeviceMemory, 0), "bind image memory")
	if err != nil {
		memory.Destroy()
		vk.DestroyImage(c.Device.VKDevice, image, nil)
		return nil, err
	}

	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if IsDepthFormat(info.Format) {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	ret := &Image{
		Device:     c.Device,
		VKImage:    image,
		VKFormat:   info.Format,
		Extent:     info.Extent,
		MipLevels:  info.MipLevels,
		LayerCount: 1,
		Aspect:     aspect,
		Layout:     vk.ImageLayoutUndefined,
		Name:       info.Name,
		memory:     memory,
		owned:      true,
	}

	if info.View != nil {
		viewInfo := *info.View
		if viewInfo.Aspect == 0 {
			viewInfo.Aspect = aspect
		}
		ret.Aspect = viewInfo.Aspect
		if ret.View, err = ret.CreateImageView(viewInfo); err != nil {
			ret.Destroy()
			return nil, err
		}
	}
	if info.Sampler != nil {
		if ret.Sampler, err = c.Device.CreateSampler(*info.Sampler, ret.MipLevels); err != nil {
			ret.Destroy()
			return nil, err
		}
	}

	c.log.Debug("created image", "name", info.Name, "width", info.Extent.Width,
		"height", info.Extent.Height, "mips", info.MipLevels)

	return ret, nil
}

// WrapImage borrows an image owned elsewhere, such as a swapchain image.
// Destroy only releases the view.
func WrapImage(d *Device, image vk.Image, view *ImageView, extent vk.Extent3D, format vk.Format, aspect vk.ImageAspectFlags) *Image {
	return &Image{
		Device:     d,
		VKImage:    image,
		VKFormat:   format,
		Extent:     extent,
		MipLevels:  1,
		LayerCount: 1,
		Aspect:     aspect,
		Layout:     vk.ImageLayoutUndefined,
		View:       view,
	}
}

func (i *Image) DescriptorInfo() vk.DescriptorImageInfo {
	info := vk.DescriptorImageInfo{ImageLayout: i.Layout}
	if i.View != nil {
		info.ImageView = i.View.VKImageView
	}
	if i.Sampler != nil {
		info.Sampler = i.Sampler.VKSampler
	}
	return info
}

func (i *Image) subresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     i.Aspect,
		BaseMipLevel:   0,
		LevelCount:     i.MipLevels,
		BaseArrayLayer: 0,
		LayerCount:     i.LayerCount,
	}
}

func (i *Image) Destroy() {
	if i.Sampler != nil {
		i.Sampler.Destroy()
		i.Sampler = nil
	}
	if i.View != nil {
		i.View.Destroy()
		i.View = nil
	}
	if !i.owned {
		return
	}
	vk.DestroyImage(i.Device.VKDevice, i.VKImage, nil)
	if i.memory != nil {
		i.memory.Destroy()
	}
}
