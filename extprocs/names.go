package extprocs

import (
	"github.com/zzxzzk115/vulkaninja"
)

// Device procs in the order of the table in procs.h
const (
	procBufferDeviceAddress = iota
	procAccelBuildSizes
	procCreateAccel
	procDestroyAccel
	procAccelDeviceAddress
	procCmdBuildAccel
	procUpdateDescriptorSets
	procCreateRayTracingPipelines
	procShaderGroupHandles
	procCmdTraceRays
	procCmdDrawMeshTasks
	procCmdSetCullMode
	procCmdSetFrontFace
	procCmdSetPrimitiveTopology
	procCmdSetPolygonMode
	procCount
)

// procNames lists the names a proc is looked up by, the first one found wins
var procNames = [procCount][]string{
	procBufferDeviceAddress:       {"vkGetBufferDeviceAddressKHR", "vkGetBufferDeviceAddress"},
	procAccelBuildSizes:           {"vkGetAccelerationStructureBuildSizesKHR"},
	procCreateAccel:               {"vkCreateAccelerationStructureKHR"},
	procDestroyAccel:              {"vkDestroyAccelerationStructureKHR"},
	procAccelDeviceAddress:        {"vkGetAccelerationStructureDeviceAddressKHR"},
	procCmdBuildAccel:             {"vkCmdBuildAccelerationStructuresKHR"},
	procUpdateDescriptorSets:      {"vkUpdateDescriptorSets"},
	procCreateRayTracingPipelines: {"vkCreateRayTracingPipelinesKHR"},
	procShaderGroupHandles:        {"vkGetRayTracingShaderGroupHandlesKHR"},
	procCmdTraceRays:              {"vkCmdTraceRaysKHR"},
	procCmdDrawMeshTasks:          {"vkCmdDrawMeshTasksEXT"},
	procCmdSetCullMode:            {"vkCmdSetCullModeEXT", "vkCmdSetCullMode"},
	procCmdSetFrontFace:           {"vkCmdSetFrontFaceEXT", "vkCmdSetFrontFace"},
	procCmdSetPrimitiveTopology:   {"vkCmdSetPrimitiveTopologyEXT", "vkCmdSetPrimitiveTopology"},
	procCmdSetPolygonMode:         {"vkCmdSetPolygonModeEXT"},
}

// requiredProcs returns the procs a device created with f must provide
func requiredProcs(f vulkaninja.DeviceFeatures) []int {
	var ret []int
	if f.RayTracing {
		for p := procBufferDeviceAddress; p <= procCmdTraceRays; p++ {
			ret = append(ret, p)
		}
	}
	if f.MeshShader {
		ret = append(ret, procCmdDrawMeshTasks)
	}
	if f.ExtendedDynamicState {
		ret = append(ret, procCmdSetCullMode, procCmdSetFrontFace, procCmdSetPrimitiveTopology, procCmdSetPolygonMode)
	}
	return ret
}

// resolveProcs looks every proc up by its names. load stores the proc found
// under name and reports whether there was one.
func resolveProcs(load func(proc int, name string) bool) (found [procCount]bool) {
	for p, names := range procNames {
		for _, name := range names {
			if load(p, name) {
				found[p] = true
				break
			}
		}
	}
	return found
}

// missingProcs names the required procs which were not found
func missingProcs(required []int, found [procCount]bool) []string {
	var missing []string
	for _, p := range required {
		if !found[p] {
			missing = append(missing, procNames[p][0])
		}
	}
	return missing
}
