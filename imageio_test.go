package vulkaninja

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func floatsOf(data []byte) []float32 {
	ret := make([]float32, len(data)/4)
	for i := range ret {
		ret[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return ret
}

func testPNG(t *testing.T) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	p, err := DecodeImage(bytes.NewReader(testPNG(t)))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Width)
	assert.Equal(t, 1, p.Height)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 255, 255, 255}, p.Data)

	format, err := p.Format()
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, format)

	_, err = DecodeImage(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestDecodeImageHDRFromPNG(t *testing.T) {
	p, err := DecodeImageHDR(bytes.NewReader(testPNG(t)))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 1, 0, 1, 1, 1}, floatsOf(p.Data))

	format, err := p.Format()
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR32g32b32a32Sfloat, format)
}

func TestDecodeRadianceFlat(t *testing.T) {
	data := "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 2\n" +
		string([]byte{128, 64, 0, 129, 9, 9, 9, 0})
	p, err := DecodeImageHDR(bytes.NewReader([]byte(data)))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Width)
	assert.Equal(t, 1, p.Height)
	assert.Equal(t, []float32{1, 0.5, 0, 1, 0, 0, 0, 1}, floatsOf(p.Data))

	format, err := p.Format()
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR32g32b32a32Sfloat, format)
}

func TestDecodeRadianceRLE(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n\n-Y 1 +X 8\n")
	buf.Write([]byte{2, 2, 0, 8})
	// red as literals, the other channels as runs
	buf.Write([]byte{8, 0, 32, 64, 96, 128, 160, 192, 224})
	buf.Write([]byte{128 + 8, 128})
	buf.Write([]byte{128 + 8, 0})
	buf.Write([]byte{128 + 8, 129})

	p, err := DecodeImageHDR(&buf)
	require.NoError(t, err)
	floats := floatsOf(p.Data)
	require.Len(t, floats, 32)
	for x := 0; x < 8; x++ {
		px := floats[x*4 : x*4+4]
		assert.Equal(t, float32(x*32)/128, px[0], "red at %d", x)
		assert.Equal(t, float32(1), px[1])
		assert.Equal(t, float32(0), px[2])
		assert.Equal(t, float32(1), px[3])
	}
}

func TestDecodeRadianceEncoded(t *testing.T) {
	img := hdr.NewRGB(image.Rect(0, 0, 2, 2))
	img.SetRGB(0, 0, hdrcolor.RGB{R: 4, G: 2, B: 1})
	img.SetRGB(1, 1, hdrcolor.RGB{R: 0.25, G: 0.5, B: 0.125})
	var buf bytes.Buffer
	require.NoError(t, rgbe.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "sky.hdr")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	p, err := DecodeImageFileHDR(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Width)
	assert.Equal(t, 2, p.Height)

	floats := floatsOf(p.Data)
	assert.Equal(t, []float32{4, 2, 1, 1}, floats[0:4], "values above one survive")
	assert.Equal(t, []float32{0, 0, 0, 1}, floats[4:8])
	assert.Equal(t, []float32{0.25, 0.5, 0.125, 1}, floats[12:16])
}

func TestDecodeRadianceErrors(t *testing.T) {
	for name, data := range map[string]string{
		"orientation": "#?RADIANCE\n\n+Y 1 +X 1\n\x00\x00\x00\x00",
		"size":        "#?RADIANCE\n\n-Y 0 +X 1\n",
		"truncated":   "#?RADIANCE\n\n-Y 2 +X 1\n\x00\x00\x00\x00",
		"overflow":    "#?RADIANCE\n\n-Y 1 +X 8\n\x02\x02\x00\x08\x89\x00",
	} {
		_, err := DecodeImageHDR(bytes.NewReader([]byte(data)))
		assert.Error(t, err, name)
	}
}

func TestPixelsFormatErrors(t *testing.T) {
	_, err := (&Pixels{Width: 1, Height: 1, Channels: 3, Data: make([]byte, 3)}).Format()
	assert.Error(t, err)
	_, err = (&Pixels{Width: 2, Height: 2, Channels: 4, Data: make([]byte, 8)}).Format()
	assert.Error(t, err)
}

func TestDecodeImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	require.NoError(t, os.WriteFile(path, testPNG(t), 0o600))

	p, err := DecodeImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Width)

	_, err = DecodeImageFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
