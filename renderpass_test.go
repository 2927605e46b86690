package vulkaninja

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestRenderPassAttachmentsClear(t *testing.T) {
	info := RenderPassCreateInfo{
		ColorFormats: []vk.Format{vk.FormatB8g8r8a8Unorm, vk.FormatR32g32b32a32Sfloat},
		DepthFormat:  vk.FormatD32Sfloat,
		Clear:        true,
	}
	att := info.attachments()
	require.Len(t, att, 3)

	for _, a := range att[:2] {
		assert.Equal(t, vk.AttachmentLoadOpClear, a.LoadOp)
		assert.Equal(t, vk.ImageLayoutUndefined, a.InitialLayout)
		assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, a.FinalLayout)
		assert.Equal(t, vk.AttachmentStoreOpStore, a.StoreOp)
	}
	assert.Equal(t, vk.FormatD32Sfloat, att[2].Format)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, att[2].FinalLayout)
}

func TestRenderPassAttachmentsLoad(t *testing.T) {
	info := RenderPassCreateInfo{
		ColorFormats:  []vk.Format{vk.FormatB8g8r8a8Unorm},
		InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:   vk.ImageLayoutPresentSrc,
	}
	att := info.attachments()
	require.Len(t, att, 1)
	assert.Equal(t, vk.AttachmentLoadOpLoad, att[0].LoadOp)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, att[0].InitialLayout)
	assert.Equal(t, vk.ImageLayoutPresentSrc, att[0].FinalLayout)
}

func TestRenderPassNeedsAttachments(t *testing.T) {
	d := &Device{}
	_, err := d.CreateRenderPass(RenderPassCreateInfo{})
	assert.Error(t, err)

	_, err = d.CreateRenderTarget(RenderTargetCreateInfo{})
	assert.Error(t, err)

	_, err = d.CreateRenderTarget(RenderTargetCreateInfo{Colors: []*Image{{Name: "color"}}})
	assert.ErrorContains(t, err, `"color" has no view`)
}
