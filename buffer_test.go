package vulkaninja

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemory is host memory standing in for a device allocation
type fakeMemory struct {
	data     []byte
	host     bool
	mapped   bool
	unmapped int
}

func (m *fakeMemory) Map() ([]byte, error) {
	m.mapped = true
	return m.data, nil
}

func (m *fakeMemory) Unmap() {
	m.mapped = false
	m.unmapped++
}

func (m *fakeMemory) Destroy() {}

func (m *fakeMemory) HostVisible() bool { return m.host }

func TestBufferCopyHostVisible(t *testing.T) {
	// allocations are rounded up, the mapping is cut to the buffer size
	memory := &fakeMemory{data: make([]byte, 32), host: true}
	b := &Buffer{Name: "uniforms", Size: 16, memory: memory}

	require.NoError(t, b.Copy([]byte{1, 2, 3, 4}))
	assert.True(t, memory.mapped)

	data, err := b.Map()
	require.NoError(t, err)
	assert.Len(t, data, 16)
	assert.Equal(t, []byte{1, 2, 3, 4}, data[:4])

	require.NoError(t, CopyValues(b, []uint32{7, 8}))
	assert.Equal(t, AsBytes([]uint32{7, 8}), data[:8])

	require.NoError(t, b.Unmap())
	assert.Equal(t, 1, memory.unmapped)
}

func TestBufferCopyTooLarge(t *testing.T) {
	b := &Buffer{Name: "small", Size: 4, memory: &fakeMemory{data: make([]byte, 4), host: true}}
	err := b.Copy(make([]byte, 5))
	assert.True(t, errors.Is(err, ErrBufferTooSmall))
	assert.Contains(t, err.Error(), "small")
}

func TestBufferNotHostVisible(t *testing.T) {
	b := &Buffer{Name: "vertices", Size: 16, memory: &fakeMemory{data: make([]byte, 16)}}
	assert.False(t, b.HostVisible())

	assert.True(t, errors.Is(b.Copy([]byte{1}), ErrNotHostVisible))
	_, err := b.Map()
	assert.True(t, errors.Is(err, ErrNotHostVisible))
	assert.True(t, errors.Is(b.Unmap(), ErrNotHostVisible))
}

func TestBufferStagingOnlyForDeviceLocal(t *testing.T) {
	b := &Buffer{Name: "uniforms", Size: 16, memory: &fakeMemory{host: true}}
	_, err := b.PrepareStagingBuffer()
	assert.True(t, errors.Is(err, ErrHostVisible))
}

func TestBufferHostVisibleFallsBackToUsage(t *testing.T) {
	assert.True(t, (&Buffer{Memory: MemoryStaging}).HostVisible())
	assert.False(t, (&Buffer{Memory: MemoryDevice}).HostVisible())
}
