package vulkaninja

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestMipLevelCount(t *testing.T) {
	assert.EqualValues(t, 1, MipLevelCount(0, 0))
	assert.EqualValues(t, 1, MipLevelCount(1, 1))
	assert.EqualValues(t, 11, MipLevelCount(1024, 512))
	assert.EqualValues(t, 9, MipLevelCount(200, 300))
}

func TestImageCreateInfoDefaults(t *testing.T) {
	info := ImageCreateInfo{Extent: vk.Extent3D{Width: 64, Height: 16}}
	got := info.withDefaults()
	assert.EqualValues(t, 1, got.Extent.Depth)
	assert.EqualValues(t, 1, got.MipLevels)

	info.MipLevels = MipLevelsFull
	assert.EqualValues(t, 7, info.withDefaults().MipLevels)

	info.MipLevels = 3
	assert.EqualValues(t, 3, info.withDefaults().MipLevels)
}

func TestIsDepthFormat(t *testing.T) {
	assert.True(t, IsDepthFormat(vk.FormatD32Sfloat))
	assert.True(t, IsDepthFormat(vk.FormatD24UnormS8Uint))
	assert.False(t, IsDepthFormat(vk.FormatR8g8b8a8Unorm))
}

func TestTransitionBarrier(t *testing.T) {
	img := &Image{
		MipLevels:  4,
		LayerCount: 1,
		Aspect:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Layout:     vk.ImageLayoutUndefined,
	}
	barrier, src, dst := transitionBarrier(img, vk.ImageLayoutTransferDstOptimal)

	assert.Equal(t, vk.ImageLayoutUndefined, barrier.OldLayout)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, barrier.NewLayout)
	assert.Zero(t, barrier.SrcAccessMask)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), barrier.DstAccessMask)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), src)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), dst)
	assert.EqualValues(t, 4, barrier.SubresourceRange.LevelCount)
	assert.EqualValues(t, 1, barrier.SubresourceRange.LayerCount)
}

func TestLayoutAccess(t *testing.T) {
	access, stage := layoutAccess(vk.ImageLayoutPresentSrc)
	assert.Zero(t, access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), stage)

	access, _ = layoutAccess(vk.ImageLayoutGeneral)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderReadBit|vk.AccessShaderWriteBit), access)

	access, stage = layoutAccess(vk.ImageLayoutPreinitialized)
	assert.Equal(t, vk.AccessFlags(vk.AccessMemoryReadBit|vk.AccessMemoryWriteBit), access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), stage)
}

func TestMipBlits(t *testing.T) {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	assert.Nil(t, mipBlits(vk.Extent3D{Width: 8, Height: 4, Depth: 1}, 1, aspect))

	blits := mipBlits(vk.Extent3D{Width: 8, Height: 4, Depth: 1}, 4, aspect)
	require.Len(t, blits, 3)

	want := [][2]vk.Offset3D{
		{{X: 8, Y: 4, Z: 1}, {X: 4, Y: 2, Z: 1}},
		{{X: 4, Y: 2, Z: 1}, {X: 2, Y: 1, Z: 1}},
		{{X: 2, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}},
	}
	for i, b := range blits {
		assert.EqualValues(t, i, b.SrcSubresource.MipLevel)
		assert.EqualValues(t, i+1, b.DstSubresource.MipLevel)
		assert.Equal(t, want[i][0], b.SrcOffsets[1], "level %d", i+1)
		assert.Equal(t, want[i][1], b.DstOffsets[1], "level %d", i+1)
	}
}

func TestGenerateMipmapsSingleLevel(t *testing.T) {
	err := (&CommandBuffer{}).GenerateMipmaps(&Image{Name: "flat", MipLevels: 1})
	assert.ErrorContains(t, err, "single mip level")
}
