package vulkaninja

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func family(index int, present bool, bits ...vk.QueueFlagBits) *QueueFamily {
	var flags vk.QueueFlags
	for _, b := range bits {
		flags |= vk.QueueFlags(b)
	}
	return &QueueFamily{
		Index:                   index,
		VKQueueFamilyProperties: vk.QueueFamilyProperties{QueueFlags: flags, QueueCount: 1},
		Present:                 present,
	}
}

func TestSelectQueueFamilies(t *testing.T) {
	families := QueueFamilySlice{
		family(0, true, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
		family(1, false, vk.QueueComputeBit, vk.QueueTransferBit),
		family(2, false, vk.QueueTransferBit),
		family(3, false, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
	}

	sel, err := SelectQueueFamilies(families, true)
	require.NoError(t, err)
	assert.Equal(t, []QueueClass{QueueGeneral, QueueCompute, QueueTransfer}, sel.Classes())
	assert.Equal(t, 0, sel[QueueGeneral].Index)
	assert.Equal(t, 1, sel[QueueCompute].Index)
	assert.Equal(t, 2, sel[QueueTransfer].Index)

	sel, err = SelectQueueFamilies(families, false)
	require.NoError(t, err)
	assert.Equal(t, 0, sel[QueueGeneral].Index)
	assert.Equal(t, 3, sel[QueueGraphics].Index, "a second general family serves graphics")
}

func TestSelectQueueFamiliesNeedsGeneral(t *testing.T) {
	families := QueueFamilySlice{
		family(0, false, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
	}
	_, err := SelectQueueFamilies(families, true)
	assert.True(t, errors.Is(err, ErrNoGeneralQueue))

	_, err = SelectQueueFamilies(nil, false)
	assert.True(t, errors.Is(err, ErrNoGeneralQueue))
}

func TestQueueFamilyFilter(t *testing.T) {
	families := QueueFamilySlice{
		family(0, false, vk.QueueComputeBit),
		family(1, false, vk.QueueGraphicsBit),
	}
	compute := families.Filter(func(q *QueueFamily) bool { return q.IsCompute() })
	require.Len(t, compute, 1)
	assert.Equal(t, 0, compute[0].Index)
	assert.Equal(t, "Transfer", QueueTransfer.String())
	assert.Equal(t, "QueueClass(7)", QueueClass(7).String())
}
