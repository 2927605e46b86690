package vulkaninja

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	assert.EqualValues(t, 12, makeAlignUp(12, 3))
	assert.EqualValues(t, 12, makeAlignUp(10, 3))
	assert.EqualValues(t, 64, makeAlignUp(32, 64))
	assert.EqualValues(t, 7, makeAlignUp(7, 0))
}

func TestAllocator(t *testing.T) {
	a := LinearAllocator{Size: 1024}

	assert.Nil(t, a.Allocate(2048, 1), "larger than the block")

	fa := a.Allocate(512, 1)
	require.NotNil(t, fa)

	assert.Nil(t, a.Allocate(768, 1))

	k := a.Allocate(500, 1)
	require.NotNil(t, k)

	assert.Nil(t, a.Allocate(50, 1))
	assert.NotNil(t, a.Allocate(5, 1))
	assert.Nil(t, a.Allocate(20, 1))

	a.Free(k)
	assert.NotNil(t, a.Allocate(500, 1), "reuses the freed gap")

	a.Free(fa)
	head := a.Allocate(20, 1)
	require.NotNil(t, head)
	assert.EqualValues(t, 0, head.Offset)

	assert.NotNil(t, a.Allocate(40, 1))
	assert.NotNil(t, a.Allocate(12, 1))
	assert.Nil(t, a.Allocate(500, 1))
	assert.NotNil(t, a.Allocate(5, 1))
}

func TestAllocatorAlignment(t *testing.T) {
	a := LinearAllocator{Size: 256}

	first := a.Allocate(40, 64)
	second := a.Allocate(64, 64)
	third := a.Allocate(96, 64)
	require.NotNil(t, first)
	require.NotNil(t, second)
	require.NotNil(t, third)

	assert.EqualValues(t, 0, first.Offset)
	assert.EqualValues(t, 64, second.Offset)
	assert.EqualValues(t, 128, third.Offset)
	assert.EqualValues(t, 224, a.Used())
	assert.Nil(t, a.Allocate(64, 64))
}
