package vulkaninja

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	Index       int
	VKQueue     vk.Queue
}

// SubmitInfo describes one queue submission. Zero values are left out.
type SubmitInfo struct {
	CommandBuffers  []*CommandBuffer
	WaitSemaphore   vk.Semaphore
	WaitStage       vk.PipelineStageFlags
	SignalSemaphore vk.Semaphore
	Fence           *Fence
}

func (q *Queue) WaitIdle() error {
	return vkErr(vk.QueueWaitIdle(q.VKQueue), "queue wait idle")
}

// Submit submits the command buffers of info to the queue
func (q *Queue) Submit(info SubmitInfo) error {
	b := make([]vk.CommandBuffer, len(info.CommandBuffers))
	for i := range info.CommandBuffers {
		b[i] = info.CommandBuffers[i].VKCommandBuffer
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(b)),
		PCommandBuffers:    b,
	}
	if info.WaitSemaphore != vk.NullSemaphore {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{info.WaitSemaphore}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{info.WaitStage}
	}
	if info.SignalSemaphore != vk.NullSemaphore {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{info.SignalSemaphore}
	}

	fence := vk.NullFence
	if info.Fence != nil {
		fence = info.Fence.VKFence
	}

	return vkErr(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, fence), "queue submit")
}

// SubmitWaitIdle submits the buffers and blocks until the queue is idle
func (q *Queue) SubmitWaitIdle(buffers ...*CommandBuffer) error {
	if err := q.Submit(SubmitInfo{CommandBuffers: buffers}); err != nil {
		return err
	}
	return q.WaitIdle()
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s Index: %d}", q.Device.String(), q.QueueFamily.String(), q.Index)
}
