// Package spirv reads the resource interface of SPIR-V modules: descriptor
// bindings with their names and categories, and the entry points.
package spirv

// Magic is the first word of every SPIR-V module
const Magic uint32 = 0x07230203

const headerWords = 5

type Op uint32

const (
	OpName                         Op = 5
	OpEntryPoint                   Op = 15
	OpTypeImage                    Op = 25
	OpTypeSampler                  Op = 26
	OpTypeSampledImage             Op = 27
	OpTypeArray                    Op = 28
	OpTypeRuntimeArray             Op = 29
	OpTypeStruct                   Op = 30
	OpTypePointer                  Op = 32
	OpConstant                     Op = 43
	OpVariable                     Op = 59
	OpDecorate                     Op = 71
	OpTypeAccelerationStructureKHR Op = 5341
)

type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
)

type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassUniform         StorageClass = 2
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

type ExecutionModel uint32

const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelRayGeneration          ExecutionModel = 5313
	ExecutionModelIntersection           ExecutionModel = 5314
	ExecutionModelAnyHit                 ExecutionModel = 5315
	ExecutionModelClosestHit             ExecutionModel = 5316
	ExecutionModelMiss                   ExecutionModel = 5317
	ExecutionModelCallable               ExecutionModel = 5318
	ExecutionModelTask                   ExecutionModel = 5364
	ExecutionModelMesh                   ExecutionModel = 5365
)

// image "Sampled" operand values
const (
	imageSampled = 1
	imageStorage = 2
)
