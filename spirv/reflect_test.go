package spirv

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assembler struct {
	words []uint32
}

func newAssembler() *assembler {
	return &assembler{words: []uint32{Magic, 0x00010500, 0, 200, 0}}
}

func (a *assembler) op(op Op, args ...uint32) *assembler {
	a.words = append(a.words, uint32(len(args)+1)<<16|uint32(op))
	a.words = append(a.words, args...)
	return a
}

func (a *assembler) name(id uint32, s string) *assembler {
	return a.op(OpName, append([]uint32{id}, str(s)...)...)
}

func (a *assembler) binding(id, set, binding uint32) *assembler {
	a.op(OpDecorate, id, uint32(DecorationDescriptorSet), set)
	return a.op(OpDecorate, id, uint32(DecorationBinding), binding)
}

func str(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return w
}

func testModule() []uint32 {
	a := newAssembler()
	a.op(OpEntryPoint, append([]uint32{uint32(ExecutionModelGLCompute), 1}, str("main")...)...)

	a.name(10, "Camera").name(12, "camera")
	a.name(20, "Particles")
	a.name(32, "legacy")
	a.name(43, "outImage")
	a.name(55, "textures")
	a.name(72, "topLevelAS")
	a.name(83, "samplers")
	a.name(92, "pc")
	a.name(102, "tex")

	a.op(OpDecorate, 10, uint32(DecorationBlock))
	a.op(OpDecorate, 20, uint32(DecorationBlock))
	a.op(OpDecorate, 30, uint32(DecorationBufferBlock))
	a.op(OpDecorate, 90, uint32(DecorationBlock))
	a.binding(12, 0, 0)
	a.binding(22, 0, 1)
	a.binding(32, 0, 2)
	a.binding(43, 0, 3)
	a.binding(55, 0, 4)
	a.binding(72, 1, 5)
	a.binding(83, 0, 6)
	a.binding(102, 0, 7)

	// uniform buffer
	a.op(OpTypeStruct, 10)
	a.op(OpTypePointer, 11, uint32(StorageClassUniform), 10)
	// storage buffer, unnamed variable
	a.op(OpTypeStruct, 20)
	a.op(OpTypePointer, 21, uint32(StorageClassStorageBuffer), 20)
	// storage buffer declared the old way
	a.op(OpTypeStruct, 30)
	a.op(OpTypePointer, 31, uint32(StorageClassUniform), 30)
	// storage image
	a.op(OpTypeImage, 41, 40, 1, 0, 0, 0, imageStorage, 1)
	a.op(OpTypePointer, 42, uint32(StorageClassUniformConstant), 41)
	// array of four combined image samplers
	a.op(OpTypeImage, 50, 40, 1, 0, 0, 0, imageSampled, 0)
	a.op(OpTypeSampledImage, 51, 50)
	a.op(OpConstant, 60, 52, 4)
	a.op(OpTypeArray, 53, 51, 52)
	a.op(OpTypePointer, 54, uint32(StorageClassUniformConstant), 53)
	// acceleration structure
	a.op(OpTypeAccelerationStructureKHR, 70)
	a.op(OpTypePointer, 71, uint32(StorageClassUniformConstant), 70)
	// runtime array of samplers
	a.op(OpTypeSampler, 80)
	a.op(OpTypeRuntimeArray, 81, 80)
	a.op(OpTypePointer, 82, uint32(StorageClassUniformConstant), 81)
	// push constants are not descriptors
	a.op(OpTypeStruct, 90)
	a.op(OpTypePointer, 91, uint32(StorageClassPushConstant), 90)
	// separate image
	a.op(OpTypeImage, 100, 40, 1, 0, 0, 0, imageSampled, 0)
	a.op(OpTypePointer, 101, uint32(StorageClassUniformConstant), 100)

	a.op(OpVariable, 11, 12, uint32(StorageClassUniform))
	a.op(OpVariable, 21, 22, uint32(StorageClassStorageBuffer))
	a.op(OpVariable, 31, 32, uint32(StorageClassUniform))
	a.op(OpVariable, 42, 43, uint32(StorageClassUniformConstant))
	a.op(OpVariable, 54, 55, uint32(StorageClassUniformConstant))
	a.op(OpVariable, 71, 72, uint32(StorageClassUniformConstant))
	a.op(OpVariable, 82, 83, uint32(StorageClassUniformConstant))
	a.op(OpVariable, 91, 92, uint32(StorageClassPushConstant))
	a.op(OpVariable, 101, 102, uint32(StorageClassUniformConstant))
	return a.words
}

func TestReflectResources(t *testing.T) {
	mod, err := Reflect(testModule())
	require.NoError(t, err)

	want := []Resource{
		{ID: 12, Name: "camera", Kind: UniformBuffer, Set: 0, Binding: 0, Count: 1},
		{ID: 22, Name: "Particles", Kind: StorageBuffer, Set: 0, Binding: 1, Count: 1},
		{ID: 32, Name: "legacy", Kind: StorageBuffer, Set: 0, Binding: 2, Count: 1},
		{ID: 43, Name: "outImage", Kind: StorageImage, Set: 0, Binding: 3, Count: 1},
		{ID: 55, Name: "textures", Kind: SampledImage, Set: 0, Binding: 4, Count: 4},
		{ID: 72, Name: "topLevelAS", Kind: AccelerationStructure, Set: 1, Binding: 5, Count: 1},
		{ID: 83, Name: "samplers", Kind: SeparateSampler, Set: 0, Binding: 6, Count: 0},
		{ID: 102, Name: "tex", Kind: SeparateImage, Set: 0, Binding: 7, Count: 1},
	}
	assert.Equal(t, want, mod.Resources)

	require.Len(t, mod.EntryPoints, 1)
	assert.Equal(t, EntryPoint{Name: "main", Model: ExecutionModelGLCompute}, mod.EntryPoints[0])

	storage := mod.ByKind(StorageBuffer)
	require.Len(t, storage, 2)
	assert.Equal(t, "Particles", storage[0].Name)
	assert.Equal(t, "legacy", storage[1].Name)
	assert.Empty(t, mod.ByKind(Kind(99)))
}

func TestReflectGenericName(t *testing.T) {
	a := newAssembler()
	a.op(OpTypeAccelerationStructureKHR, 5)
	a.op(OpTypePointer, 6, uint32(StorageClassUniformConstant), 5)
	a.op(OpVariable, 6, 7, uint32(StorageClassUniformConstant))

	mod, err := Reflect(a.words)
	require.NoError(t, err)
	require.Len(t, mod.Resources, 1)
	assert.Equal(t, "_7", mod.Resources[0].Name)
}

func TestReflectErrors(t *testing.T) {
	_, err := Reflect([]uint32{0xdeadbeef, 0, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrMagic))

	_, err = Reflect([]uint32{Magic})
	assert.True(t, errors.Is(err, ErrMagic))

	words := newAssembler().words
	words = append(words, 4<<16|uint32(OpVariable), 1)
	_, err = Reflect(words)
	assert.True(t, errors.Is(err, ErrTruncated))

	words = append(newAssembler().words, 0)
	_, err = Reflect(words)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestWords(t *testing.T) {
	words, err := Words([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []uint32{Magic, 1}, words)

	_, err = Words([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SampledImage", SampledImage.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
