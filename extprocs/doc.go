// Package extprocs loads the Vulkan entry points vulkaninja needs beyond the
// 1.1 binding: buffer device addresses, acceleration structures, ray tracing
// pipelines, mesh shading and extended dynamic state.
//
// Importing the package registers its loader, so contexts created with
// RayTracing, MeshShader or ExtendedDynamicState set pick it up:
//
//	import _ "github.com/zzxzzk115/vulkaninja/extprocs"
//
// The package is built with cgo against the system Vulkan headers, which
// have to include VK_EXT_mesh_shader and VK_EXT_extended_dynamic_state3.
package extprocs
