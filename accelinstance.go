package vulkaninja

import (
	lin "github.com/xlab/linmath"
)

// geometryInstanceTriangleFacingCullDisable is
// VK_GEOMETRY_INSTANCE_TRIANGLE_FACING_CULL_DISABLE_BIT_KHR
const geometryInstanceTriangleFacingCullDisable = 0x1

const instanceMaskAll = 0xFF

// AccelInstance places a bottom level structure in a top level one.
type AccelInstance struct {
	Bottom *BottomAccel
	// Transform is column major, as built by linmath
	Transform lin.Mat4x4
	// SBTOffset selects the hit group of the instance, 24 bits
	SBTOffset uint32
	// CustomIndex is visible to shaders as gl_InstanceCustomIndexEXT, 24 bits
	CustomIndex uint32
}

// accelInstanceRecord has the memory layout of VkAccelerationStructureInstanceKHR
type accelInstanceRecord struct {
	Transform       [3][4]float32
	CustomIndexMask uint32
	SBTOffsetFlags  uint32
	AccelerationRef uint64
}

func packInstance(inst AccelInstance, bottom DeviceAddress) accelInstanceRecord {
	var r accelInstanceRecord
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			r.Transform[row][col] = inst.Transform[col][row]
		}
	}
	r.CustomIndexMask = inst.CustomIndex&0xFFFFFF | instanceMaskAll<<24
	r.SBTOffsetFlags = inst.SBTOffset&0xFFFFFF | geometryInstanceTriangleFacingCullDisable<<24
	r.AccelerationRef = uint64(bottom)
	return r
}

func packInstances(instances []AccelInstance) []accelInstanceRecord {
	ret := make([]accelInstanceRecord, len(instances))
	for i, inst := range instances {
		ret[i] = packInstance(inst, inst.Bottom.Address)
	}
	return ret
}
