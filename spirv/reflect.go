package spirv

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMagic     = errors.New("not a SPIR-V module")
	ErrTruncated = errors.New("truncated SPIR-V instruction")
)

// Kind is the descriptor category of a resource
type Kind int

const (
	UniformBuffer Kind = iota
	StorageBuffer
	StorageImage
	SampledImage
	SeparateImage
	SeparateSampler
	AccelerationStructure
)

func (k Kind) String() string {
	switch k {
	case UniformBuffer:
		return "UniformBuffer"
	case StorageBuffer:
		return "StorageBuffer"
	case StorageImage:
		return "StorageImage"
	case SampledImage:
		return "SampledImage"
	case SeparateImage:
		return "SeparateImage"
	case SeparateSampler:
		return "SeparateSampler"
	case AccelerationStructure:
		return "AccelerationStructure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Resource is one descriptor-backed variable of a module
type Resource struct {
	ID      uint32
	Name    string
	Kind    Kind
	Set     uint32
	Binding uint32
	// Count is the array length, 1 for a plain variable and 0 for a
	// runtime sized array
	Count uint32
}

type EntryPoint struct {
	Name  string
	Model ExecutionModel
}

// Module is the reflected interface of a SPIR-V module
type Module struct {
	EntryPoints []EntryPoint
	Resources   []Resource
}

// ByKind returns the resources of one category in declaration order
func (m *Module) ByKind(k Kind) []Resource {
	var ret []Resource
	for _, r := range m.Resources {
		if r.Kind == k {
			ret = append(ret, r)
		}
	}
	return ret
}

// Words converts a little endian byte stream to SPIR-V words
func Words(code []byte) ([]uint32, error) {
	if len(code)%4 != 0 {
		return nil, errors.Wrapf(ErrTruncated, "%d bytes", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

type typeInfo struct {
	op        Op
	operands  []uint32
	arraySize uint32
}

type variable struct {
	id      uint32
	typeID  uint32
	storage StorageClass
}

// Reflect parses words and returns the descriptor resources and entry points
// declared in the module.
func Reflect(words []uint32) (*Module, error) {
	if len(words) < headerWords || words[0] != Magic {
		return nil, errors.WithStack(ErrMagic)
	}

	names := make(map[uint32]string)
	decorations := make(map[uint32]map[Decoration]uint32)
	types := make(map[uint32]typeInfo)
	constants := make(map[uint32]uint32)
	var variables []variable
	mod := &Module{}

	decorate := func(id uint32, d Decoration, v uint32) {
		if decorations[id] == nil {
			decorations[id] = make(map[Decoration]uint32)
		}
		decorations[id][d] = v
	}

	for pc := headerWords; pc < len(words); {
		count := int(words[pc] >> 16)
		op := Op(words[pc] & 0xffff)
		if count == 0 || pc+count > len(words) {
			return nil, errors.Wrapf(ErrTruncated, "opcode %d at word %d", op, pc)
		}
		args := words[pc+1 : pc+count]
		pc += count

		switch op {
		case OpName:
			if len(args) >= 2 {
				names[args[0]] = literalString(args[1:])
			}
		case OpEntryPoint:
			if len(args) >= 3 {
				mod.EntryPoints = append(mod.EntryPoints, EntryPoint{
					Model: ExecutionModel(args[0]),
					Name:  literalString(args[2:]),
				})
			}
		case OpDecorate:
			if len(args) < 2 {
				continue
			}
			var v uint32
			if len(args) >= 3 {
				v = args[2]
			}
			decorate(args[0], Decoration(args[1]), v)
		case OpConstant:
			if len(args) >= 3 {
				constants[args[1]] = args[2]
			}
		case OpTypeImage, OpTypeSampler, OpTypeSampledImage, OpTypeArray,
			OpTypeRuntimeArray, OpTypeStruct, OpTypePointer, OpTypeAccelerationStructureKHR:
			if len(args) >= 1 {
				types[args[0]] = typeInfo{op: op, operands: args[1:]}
			}
		case OpVariable:
			if len(args) >= 3 {
				variables = append(variables, variable{
					typeID:  args[0],
					id:      args[1],
					storage: StorageClass(args[2]),
				})
			}
		}
	}

	for _, v := range variables {
		if v.storage != StorageClassUniform && v.storage != StorageClassUniformConstant &&
			v.storage != StorageClassStorageBuffer {
			continue
		}
		ptr, ok := types[v.typeID]
		if !ok || ptr.op != OpTypePointer || len(ptr.operands) < 2 {
			continue
		}

		baseID, count := unwrapArrays(types, constants, ptr.operands[1])
		base, ok := types[baseID]
		if !ok {
			continue
		}

		kind, ok := classify(v.storage, base, decorations[baseID])
		if !ok {
			continue
		}

		name := names[v.id]
		if name == "" {
			name = names[baseID]
		}
		if name == "" {
			name = fmt.Sprintf("_%d", v.id)
		}

		dec := decorations[v.id]
		mod.Resources = append(mod.Resources, Resource{
			ID:      v.id,
			Name:    name,
			Kind:    kind,
			Set:     dec[DecorationDescriptorSet],
			Binding: dec[DecorationBinding],
			Count:   count,
		})
	}

	return mod, nil
}

func unwrapArrays(types map[uint32]typeInfo, constants map[uint32]uint32, id uint32) (uint32, uint32) {
	count := uint32(1)
	for {
		t, ok := types[id]
		if !ok || len(t.operands) == 0 {
			return id, count
		}
		switch t.op {
		case OpTypeArray:
			if len(t.operands) >= 2 {
				count *= constants[t.operands[1]]
			}
			id = t.operands[0]
		case OpTypeRuntimeArray:
			count = 0
			id = t.operands[0]
		default:
			return id, count
		}
	}
}

func classify(storage StorageClass, base typeInfo, dec map[Decoration]uint32) (Kind, bool) {
	switch storage {
	case StorageClassStorageBuffer:
		return StorageBuffer, base.op == OpTypeStruct
	case StorageClassUniform:
		if base.op != OpTypeStruct {
			return 0, false
		}
		if _, ok := dec[DecorationBufferBlock]; ok {
			return StorageBuffer, true
		}
		return UniformBuffer, true
	}

	switch base.op {
	case OpTypeSampledImage:
		return SampledImage, true
	case OpTypeSampler:
		return SeparateSampler, true
	case OpTypeAccelerationStructureKHR:
		return AccelerationStructure, true
	case OpTypeImage:
		// operands: sampled type, dim, depth, arrayed, ms, sampled, format
		if len(base.operands) < 6 {
			return 0, false
		}
		switch base.operands[5] {
		case imageStorage:
			return StorageImage, true
		case imageSampled:
			return SeparateImage, true
		}
	}
	return 0, false
}

func literalString(words []uint32) string {
	b := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for i := 0; i < 4; i++ {
			c := byte(w >> (8 * i))
			if c == 0 {
				return string(b)
			}
			b = append(b, c)
		}
	}
	return string(b)
}
