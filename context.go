package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Context owns the instance, the device and every queue of it. It is created
// in two steps so a window surface can be made from the instance before the
// device is picked:
//
//	ctx, err := vulkaninja.CreateContext(cfg)
//	surface, err := win.CreateSurface(ctx.Instance)
//	err = ctx.InitDevice(surface)
type Context struct {
	Config         ContextConfig
	Instance       *Instance
	PhysicalDevice *PhysicalDevice
	Device         *Device
	DescriptorPool *DescriptorPool
	// Queues is the queue family picked for each class
	Queues QueueSelection
	// Surface is vk.NullSurface for headless contexts
	Surface vk.Surface

	queues map[QueueClass]*queueTable
	cache  *PipelineCache
	procs  ExtensionProcs
	log    *slog.Logger
}

// CreateContext creates the instance described by cfg
func CreateContext(cfg ContextConfig) (*Context, error) {
	cfg = cfg.withDefaults()
	instance, err := CreateInstance(cfg)
	if err != nil {
		return nil, err
	}
	return &Context{
		Config:   cfg,
		Instance: instance,
		procs:    cfg.Procs,
		log:      cfg.Logger,
	}, nil
}

// InitDevice picks a physical device, selects its queue families and creates
// the logical device with one queue and command pool per hardware queue.
// surface may be vk.NullSurface, presentation is then not required.
func (c *Context) InitDevice(surface vk.Surface) error {
	if c.Config.Features().Any() && c.procs == nil {
		return errors.Wrap(ErrExtensionProcs, "enabled device features need extension procs, import the extprocs package")
	}
	presentation := surface != vk.NullSurface
	c.Surface = surface

	devices, err := c.Instance.PhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}
	physical, err := pickPhysicalDevice(devices)
	if err != nil {
		return err
	}
	c.PhysicalDevice = physical
	c.log.Info("picked physical device", "name", physical.DeviceName, "discrete", physical.IsDiscrete())

	extensions := c.Config.deviceExtensions(presentation)
	if err := physical.CheckExtensions(extensions); err != nil {
		return err
	}

	families, err := physical.QueueFamilies(surface)
	if err != nil {
		return err
	}
	sel, err := SelectQueueFamilies(families, presentation)
	if err != nil {
		return err
	}
	c.Queues = sel
	for _, class := range sel.Classes() {
		c.log.Debug("selected queue family", "class", class.String(), "family", sel[class].Index,
			"queues", sel[class].QueueCount())
	}

	features := physical.VKPhysicalDeviceFeatures()
	options := &CreateDeviceOptions{
		EnabledExtensions: extensions,
		Features:          &features,
	}
	if c.procs != nil {
		options.Next = c.procs.DeviceCreateNext(physical.VKPhysicalDevice, c.Config.Features())
	}
	device, err := physical.CreateLogicalDevice(sel, options)
	if err != nil {
		return err
	}
	c.Device = device
	c.log.Info("created device", "extensions", extensions)

	if c.procs != nil {
		if err := c.procs.Load(c.Instance.VKInstance, device.VKDevice); err != nil {
			c.destroyDevice()
			return errors.Wrap(err, "load extension procs")
		}
	}

	if err := c.createQueues(); err != nil {
		c.destroyDevice()
		return err
	}

	pool := device.NewDescriptorPool()
	pool.AddDefaultPoolSizes(int(c.Config.DescriptorCount), c.Config.RayTracing)
	if c.DescriptorPool, err = device.CreateDescriptorPool(pool, int(c.Config.MaxDescriptorSets)); err != nil {
		c.destroyDevice()
		return err
	}

	if c.cache, err = device.CreatePipelineCache(); err != nil {
		c.destroyDevice()
		return err
	}
	return nil
}

func (c *Context) createQueues() error {
	c.queues = make(map[QueueClass]*queueTable)
	for _, class := range c.Queues.Classes() {
		family := c.Queues[class]
		table := &queueTable{}
		c.queues[class] = table
		for i := 0; i < family.QueueCount(); i++ {
			pool, err := c.Device.CreateCommandPool(family)
			if err != nil {
				return err
			}
			pool.procs = c.procs
			table.add(&ThreadQueue{
				Queue:       c.Device.GetQueue(family, i),
				CommandPool: pool,
			})
		}
	}
	return nil
}

// GetThreadQueue returns the queue of class bound to tid. The first call for
// a tid binds it to a free queue for the lifetime of the context.
func (c *Context) GetThreadQueue(tid ThreadID, class QueueClass) (*ThreadQueue, error) {
	table, ok := c.queues[class]
	if !ok {
		return nil, errors.Wrap(ErrQueueClassUnavailable, class.String())
	}
	tq, bound, err := table.acquire(tid)
	if err != nil {
		return nil, errors.Wrapf(err, "%s queue for thread %d", class, tid)
	}
	if bound {
		c.log.Debug("bound queue", "class", class.String(), "thread", uint64(tid), "index", tq.Queue.Index)
	}
	return tq, nil
}

// HasQueueClass reports whether a family was selected for class
func (c *Context) HasQueueClass(class QueueClass) bool {
	_, ok := c.queues[class]
	return ok
}

func (c *Context) FindMemoryType(typeBits uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	return c.PhysicalDevice.FindMemoryType(typeBits, flags)
}

// AllocateCommandBuffer allocates a command buffer from the pool of the
// queue bound to tid.
func (c *Context) AllocateCommandBuffer(tid ThreadID, class QueueClass) (*CommandBuffer, error) {
	tq, err := c.GetThreadQueue(tid, class)
	if err != nil {
		return nil, err
	}
	return tq.CommandPool.AllocateBuffer(class)
}

// OneTimeSubmit records a transient command buffer with record, submits it
// to the queue of tid and waits for the queue to go idle.
func (c *Context) OneTimeSubmit(tid ThreadID, class QueueClass, record func(cb *CommandBuffer) error) error {
	tq, err := c.GetThreadQueue(tid, class)
	if err != nil {
		return err
	}
	cb, err := tq.CommandPool.AllocateBuffer(class)
	if err != nil {
		return err
	}
	defer tq.CommandPool.FreeBuffer(cb)

	if err := cb.BeginOneTime(); err != nil {
		return err
	}
	if err := record(cb); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}
	return tq.Queue.SubmitWaitIdle(cb)
}

// Submit submits to the queue of tid for the class of the first command
// buffer without waiting.
func (c *Context) Submit(tid ThreadID, info SubmitInfo) error {
	class := QueueGeneral
	if len(info.CommandBuffers) > 0 {
		class = info.CommandBuffers[0].Class
	}
	tq, err := c.GetThreadQueue(tid, class)
	if err != nil {
		return err
	}
	return tq.Queue.Submit(info)
}

func (c *Context) WaitIdle() error {
	return c.Device.WaitIdle()
}

// Procs returns the extension procs the context was configured with
func (c *Context) Procs() ExtensionProcs {
	return c.procs
}

func (c *Context) pipelineCache() vk.PipelineCache {
	if c.cache == nil {
		return nil
	}
	return c.cache.VKPipelineCache
}

// Destroy releases the device and the instance. Resources created from the
// context have to be destroyed first.
func (c *Context) Destroy() {
	c.destroyDevice()
	if r, ok := c.procs.(interface{ Release() }); ok {
		r.Release()
		c.procs = nil
	}
	if c.Surface != vk.NullSurface {
		vk.DestroySurface(c.Instance.VKInstance, c.Surface, nil)
		c.Surface = vk.NullSurface
	}
	if c.Instance != nil {
		c.Instance.Destroy()
		c.Instance = nil
	}
}

func (c *Context) destroyDevice() {
	if c.Device != nil {
		if err := c.Device.WaitIdle(); err != nil {
			c.log.Warn("wait idle before destroy", "error", err)
		}
		if c.cache != nil {
			c.cache.Destroy()
			c.cache = nil
		}
		if c.DescriptorPool != nil {
			c.DescriptorPool.Destroy()
			c.DescriptorPool = nil
		}
		for _, table := range c.queues {
			table.destroy()
		}
		c.queues = nil
		c.Device.Destroy()
		c.Device = nil
	}
}
