package vulkaninja

import (
	"bufio"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Pixels is decoded image data with four channels per pixel, either bytes
// or little endian float32 values.
type Pixels struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
}

// DecodeImage decodes any registered image format to RGBA8
func DecodeImage(r io.Reader) (*Pixels, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	b := src.Bounds()
	m := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), src, b.Min, draw.Src)
	return &Pixels{Data: m.Pix, Width: b.Dx(), Height: b.Dy(), Channels: 4}, nil
}

func DecodeImageFile(path string) (*Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := DecodeImage(bufio.NewReader(f))
	return p, errors.Wrap(err, path)
}

// DecodeImageHDR decodes to RGBA32F. Radiance files keep their full range,
// every other format is normalized to [0, 1] from 16 bits per channel.
func DecodeImageHDR(r io.Reader) (*Pixels, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, errors.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}

	floats := make([]float32, b.Dx()*b.Dy()*4)
	if m, ok := src.(hdr.Image); ok {
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				r, g, bl, _ := m.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
				px := floats[(y*b.Dx()+x)*4:]
				px[0], px[1], px[2], px[3] = float32(r), float32(g), float32(bl), 1
			}
		}
		return &Pixels{Data: AsBytes(floats), Width: b.Dx(), Height: b.Dy(), Channels: 4}, nil
	}

	m := image.NewRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), src, b.Min, draw.Src)
	for i := range floats {
		v := uint16(m.Pix[2*i])<<8 | uint16(m.Pix[2*i+1])
		floats[i] = float32(v) / 0xFFFF
	}
	return &Pixels{Data: AsBytes(floats), Width: b.Dx(), Height: b.Dy(), Channels: 4}, nil
}

func DecodeImageFileHDR(path string) (*Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := DecodeImageHDR(bufio.NewReader(f))
	return p, errors.Wrap(err, path)
}

// LoadImageCreateInfo configures LoadImage
type LoadImageCreateInfo struct {
	// MipLevels defaults to 1, MipLevelsFull generates the complete chain
	MipLevels uint32
	Sampler   SamplerCreateInfo
}

// LoadImage loads an image file into a sampled RGBA8 image with a view and
// a sampler, ready to be read by shaders.
func (c *Context) LoadImage(path string, info LoadImageCreateInfo) (*Image, error) {
	pixels, err := DecodeImageFile(path)
	if err != nil {
		return nil, err
	}
	return c.CreateImageFromPixels(pixels, info, path)
}

// LoadImageHDR loads an image file into a sampled RGBA32F image
func (c *Context) LoadImageHDR(path string) (*Image, error) {
	pixels, err := DecodeImageFileHDR(path)
	if err != nil {
		return nil, err
	}
	return c.CreateImageFromPixels(pixels, LoadImageCreateInfo{Sampler: DefaultSamplerCreateInfo()}, path)
}

// Format is the image format matching the pixel size of p
func (p *Pixels) Format() (vk.Format, error) {
	if p.Width <= 0 || p.Height <= 0 || p.Channels != 4 {
		return vk.FormatUndefined, errors.Errorf("unsupported pixels %dx%dx%d", p.Width, p.Height, p.Channels)
	}
	switch len(p.Data) / (p.Width * p.Height) {
	case 4:
		return vk.FormatR8g8b8a8Unorm, nil
	case 16:
		return vk.FormatR32g32b32a32Sfloat, nil
	}
	return vk.FormatUndefined, errors.Errorf("%d bytes for %dx%d pixels", len(p.Data), p.Width, p.Height)
}

// CreateImageFromPixels uploads pixels to a new sampled image and leaves it
// in the shader read only layout.
func (c *Context) CreateImageFromPixels(pixels *Pixels, info LoadImageCreateInfo, name string) (*Image, error) {
	format, err := pixels.Format()
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	sampler := info.Sampler
	img, err := c.CreateImage(ImageCreateInfo{
		Usage:     ImageUsageSampled,
		Extent:    vk.Extent3D{Width: uint32(pixels.Width), Height: uint32(pixels.Height), Depth: 1},
		Format:    format,
		MipLevels: info.MipLevels,
		View:      &ImageViewCreateInfo{},
		Sampler:   &sampler,
		Name:      name,
	})
	if err != nil {
		return nil, err
	}

	staging, err := c.CreateBuffer(BufferCreateInfo{
		Usage:  BufferUsageStaging,
		Memory: MemoryStaging,
		Size:   uint64(len(pixels.Data)),
		Name:   name + " staging",
	})
	if err != nil {
		img.Destroy()
		return nil, err
	}
	defer staging.Destroy()
	if err := staging.Copy(pixels.Data); err != nil {
		img.Destroy()
		return nil, err
	}

	err = c.OneTimeSubmit(MainThread, QueueGeneral, func(cb *CommandBuffer) error {
		cb.TransitionLayout(img, vk.ImageLayoutTransferDstOptimal)
		cb.CopyBufferToImage(staging, img)
		if img.MipLevels > 1 {
			return cb.GenerateMipmaps(img)
		}
		cb.TransitionLayout(img, vk.ImageLayoutShaderReadOnlyOptimal)
		return nil
	})
	if err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}
