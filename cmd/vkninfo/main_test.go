package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"

	"github.com/zzxzzk115/vulkaninja"
)

func family(index int, flags vk.QueueFlagBits) *vulkaninja.QueueFamily {
	return &vulkaninja.QueueFamily{
		Index: index,
		VKQueueFamilyProperties: vk.QueueFamilyProperties{
			QueueFlags: vk.QueueFlags(flags),
			QueueCount: 1,
		},
	}
}

func TestFamilyClasses(t *testing.T) {
	families := vulkaninja.QueueFamilySlice{
		family(0, vk.QueueGraphicsBit|vk.QueueComputeBit|vk.QueueTransferBit),
		family(1, vk.QueueComputeBit|vk.QueueTransferBit),
		family(2, vk.QueueTransferBit),
	}
	assert.Equal(t, map[int]string{
		0: "-> General",
		1: "-> Compute",
		2: "-> Transfer",
	}, familyClasses(families))

	assert.Empty(t, familyClasses(vulkaninja.QueueFamilySlice{family(0, vk.QueueTransferBit)}))
}

func TestFlagNames(t *testing.T) {
	f := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	assert.Equal(t, "HostVisible|HostCoherent (6)", flagNames(f, propertyFlags))
	assert.Equal(t, " (0)", flagNames(vk.MemoryHeapFlags(0), heapFlags))
}

func TestAPIVersion(t *testing.T) {
	assert.Equal(t, "1.2.198", apiVersion(vk.MakeVersion(1, 2, 198)))
}

func TestList(t *testing.T) {
	var buf bytes.Buffer
	list(&buf, "Layers", []string{"a", "b"})
	assert.Equal(t, "Layers\n-----------------------------\n\ta\n\tb\n\n", buf.String())
}
