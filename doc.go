/*
Package vulkaninja is a thin layer over Vulkan for go. It keeps the native objects in reach
(every wrapper exposes them in fields prefixed with 'VK') while taking care of the parts of
Vulkan that are the same in every application: picking a device and its queues, allocating
memory, describing resources to shaders and pacing frames.

Creating a context

A Context owns the instance, the device and its queues. It is created from a ContextConfig,
either built in code from DefaultContextConfig or read from a TOML file with LoadContextConfig.
Creation happens in two steps so a window surface can be made from the instance before the
device is picked:

	ctx, err := vulkaninja.CreateContext(cfg)
	surface, err := win.CreateSurface(ctx.Instance)
	err = ctx.InitDevice(surface)

A headless context passes vk.NullSurface to InitDevice.

Queue families are partitioned into four classes, General, Graphics, Compute and Transfer.
General always exists, the other classes only when the device has a family dedicated to them.
Work is submitted per ThreadID so goroutines which record in parallel each own their queue.

Resources

	Buffer		linear memory, host visible or device local, written with Copy or a staging upload
	Image		a 2D image with its view and optional sampler, LoadImage reads PNG, JPEG, BMP and HDR files
	Shader		a SPIR-V module with the bindings, push constants and vertex inputs reflected from it
	DescriptorSet	built from the shader reflection, filled with SetBuffers, SetImages and SetAccels
	BottomAccel	a bottom level acceleration structure over one triangle mesh
	TopAccel	a top level acceleration structure over AccelInstances

Pipelines

Graphics, mesh shader, compute and ray tracing pipelines share the Pipeline type, its Kind
tells them apart. Their layouts are derived from the shaders and the descriptor set they are
created with. Ray tracing pipelines own a shader binding table laid out for the device.

Presenting

A Swapchain paces rendering over FramesInFlight frame slots:

	err := sc.WaitNextFrame()
	cb, err := sc.BeginCommandBuffer()
	// record into cb, drawing into sc.CurrentImage()
	err = sc.Submit()
	err = sc.PresentImage()

The window, ui and app packages build a complete frame loop on top of it.

Ray tracing and mesh shading

vulkan-go only loads the Vulkan 1.1 entry points. Everything newer is reached through an
ExtensionProcs implementation set in ContextConfig.Procs.
*/
package vulkaninja
