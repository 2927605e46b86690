package vulkaninja

import (
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/zzxzzk115/vulkaninja/spirv"
)

// Shader stages missing from the Vulkan 1.1 headers
const (
	ShaderStageTaskBit         vk.ShaderStageFlagBits = 0x00000040
	ShaderStageMeshBit         vk.ShaderStageFlagBits = 0x00000080
	ShaderStageRaygenBit       vk.ShaderStageFlagBits = 0x00000100
	ShaderStageAnyHitBit       vk.ShaderStageFlagBits = 0x00000200
	ShaderStageClosestHitBit   vk.ShaderStageFlagBits = 0x00000400
	ShaderStageMissBit         vk.ShaderStageFlagBits = 0x00000800
	ShaderStageIntersectionBit vk.ShaderStageFlagBits = 0x00001000
	ShaderStageCallableBit     vk.ShaderStageFlagBits = 0x00002000
)

// StageFromModel maps a SPIR-V execution model to its shader stage
func StageFromModel(m spirv.ExecutionModel) (vk.ShaderStageFlagBits, bool) {
	switch m {
	case spirv.ExecutionModelVertex:
		return vk.ShaderStageVertexBit, true
	case spirv.ExecutionModelTessellationControl:
		return vk.ShaderStageTessellationControlBit, true
	case spirv.ExecutionModelTessellationEvaluation:
		return vk.ShaderStageTessellationEvaluationBit, true
	case spirv.ExecutionModelGeometry:
		return vk.ShaderStageGeometryBit, true
	case spirv.ExecutionModelFragment:
		return vk.ShaderStageFragmentBit, true
	case spirv.ExecutionModelGLCompute:
		return vk.ShaderStageComputeBit, true
	case spirv.ExecutionModelTask:
		return ShaderStageTaskBit, true
	case spirv.ExecutionModelMesh:
		return ShaderStageMeshBit, true
	case spirv.ExecutionModelRayGeneration:
		return ShaderStageRaygenBit, true
	case spirv.ExecutionModelAnyHit:
		return ShaderStageAnyHitBit, true
	case spirv.ExecutionModelClosestHit:
		return ShaderStageClosestHitBit, true
	case spirv.ExecutionModelMiss:
		return ShaderStageMissBit, true
	case spirv.ExecutionModelIntersection:
		return ShaderStageIntersectionBit, true
	case spirv.ExecutionModelCallable:
		return ShaderStageCallableBit, true
	}
	return 0, false
}

type ShaderCreateInfo struct {
	Code  []uint32
	Stage vk.ShaderStageFlagBits
	// EntryPoint defaults to main
	EntryPoint string
}

// Shader is an immutable SPIR-V module for one pipeline stage
type Shader struct {
	Device         *Device
	Code           []uint32
	Stage          vk.ShaderStageFlagBits
	EntryPoint     string
	VKShaderModule vk.ShaderModule
}

func (d *Device) CreateShader(info ShaderCreateInfo) (*Shader, error) {
	if len(info.Code) == 0 {
		return nil, errors.New("empty shader code")
	}
	entry := info.EntryPoint
	if entry == "" {
		entry = "main"
	}

	var module vk.ShaderModule
	err := vkErr(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(info.Code) * 4),
		PCode:    info.Code,
	}, nil, &module), "create shader module")
	if err != nil {
		return nil, err
	}

	return &Shader{
		Device:         d,
		Code:           append([]uint32(nil), info.Code...),
		Stage:          info.Stage,
		EntryPoint:     entry,
		VKShaderModule: module,
	}, nil
}

// LoadShaderFromFile loads a compiled SPIR-V file
func (d *Device) LoadShaderFromFile(file string, stage vk.ShaderStageFlagBits) (*Shader, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", file)
	}
	code, err := spirv.Words(data)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	return d.CreateShader(ShaderCreateInfo{Code: code, Stage: stage})
}

// Reflect parses the resource interface of the shader. The result is not cached.
func (s *Shader) Reflect() (*spirv.Module, error) {
	return spirv.Reflect(s.Code)
}

func (s *Shader) VKPipelineShaderStageCreateInfo() vk.PipelineShaderStageCreateInfo {
	var shaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{}
	shaderStageCreateInfo.SType = vk.StructureTypePipelineShaderStageCreateInfo
	shaderStageCreateInfo.Stage = s.Stage
	shaderStageCreateInfo.Module = s.VKShaderModule
	shaderStageCreateInfo.PName = safeString(s.EntryPoint)
	return shaderStageCreateInfo
}

func (s *Shader) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}
