package vulkaninja

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type timerState int

const (
	timerReady timerState = iota
	timerStarted
	timerStopped
)

func (s timerState) String() string {
	switch s {
	case timerStarted:
		return "started"
	case timerStopped:
		return "stopped"
	}
	return "ready"
}

// GPUTimer measures the GPU time between two timestamps written by a command
// buffer. Start and Stop are recorded with CommandBuffer.BeginTimestamp and
// CommandBuffer.EndTimestamp, the result can be read once the command buffer
// was submitted.
type GPUTimer struct {
	Device      *Device
	VKQueryPool vk.QueryPool
	// Period is the number of nanoseconds per timestamp tick
	Period float32

	state      timerState
	timestamps [2]uint64
}

func (c *Context) CreateGPUTimer() (*GPUTimer, error) {
	var queryPoolInfo = vk.QueryPoolCreateInfo{}
	queryPoolInfo.SType = vk.StructureTypeQueryPoolCreateInfo
	queryPoolInfo.QueryType = vk.QueryTypeTimestamp
	queryPoolInfo.QueryCount = 2

	var pool vk.QueryPool
	err := vkErr(vk.CreateQueryPool(c.Device.VKDevice, &queryPoolInfo, nil, &pool), "create query pool")
	if err != nil {
		return nil, err
	}
	return &GPUTimer{
		Device:      c.Device,
		VKQueryPool: pool,
		Period:      c.PhysicalDevice.Limits().TimestampPeriod,
	}, nil
}

func (t *GPUTimer) start() error {
	if t.state == timerStarted {
		return errors.Wrapf(ErrTimerState, "start while %s", t.state)
	}
	t.state = timerStarted
	return nil
}

func (t *GPUTimer) stop() error {
	if t.state != timerStarted {
		return errors.Wrapf(ErrTimerState, "stop while %s", t.state)
	}
	t.state = timerStopped
	return nil
}

// elapsed converts the two timestamps to nanoseconds and makes the timer
// ready again.
func (t *GPUTimer) elapsed() float32 {
	t.state = timerReady
	if t.timestamps[1] < t.timestamps[0] {
		return 0
	}
	return t.Period * float32(t.timestamps[1]-t.timestamps[0])
}

// ElapsedInNano blocks until both timestamps are available. A timer that
// was not stopped reports 0.
func (t *GPUTimer) ElapsedInNano() (float32, error) {
	if t.state != timerStopped {
		return 0, nil
	}
	t.timestamps = [2]uint64{}
	res := vk.GetQueryPoolResults(t.Device.VKDevice, t.VKQueryPool, 0, 2,
		uint(unsafe.Sizeof(t.timestamps)), unsafe.Pointer(&t.timestamps[0]), vk.DeviceSize(8),
		vk.QueryResultFlags(vk.QueryResult64Bit|vk.QueryResultWaitBit))
	if res != vk.Success {
		return 0, errors.Wrapf(ErrQueryResults, "result %d", res)
	}
	return t.elapsed(), nil
}

func (t *GPUTimer) ElapsedInMilli() (float32, error) {
	ns, err := t.ElapsedInNano()
	return ns / 1e6, err
}

func (t *GPUTimer) Destroy() {
	vk.DestroyQueryPool(t.Device.VKDevice, t.VKQueryPool, nil)
}

// BeginTimestamp resets the timer queries and writes the first timestamp
// once all previous commands have completed.
func (c *CommandBuffer) BeginTimestamp(t *GPUTimer) error {
	if err := t.start(); err != nil {
		return err
	}
	vk.CmdResetQueryPool(c.VKCommandBuffer, t.VKQueryPool, 0, 2)
	vk.CmdWriteTimestamp(c.VKCommandBuffer, vk.PipelineStageTopOfPipeBit, t.VKQueryPool, 0)
	return nil
}

// EndTimestamp writes the second timestamp after all previous commands
func (c *CommandBuffer) EndTimestamp(t *GPUTimer) error {
	if err := t.stop(); err != nil {
		return err
	}
	vk.CmdWriteTimestamp(c.VKCommandBuffer, vk.PipelineStageBottomOfPipeBit, t.VKQueryPool, 1)
	return nil
}

// CPUTimer measures wall clock time on the monotonic clock
type CPUTimer struct {
	start time.Time
}

func NewCPUTimer() *CPUTimer {
	t := &CPUTimer{}
	t.Restart()
	return t
}

func (t *CPUTimer) Restart() {
	t.start = time.Now()
}

func (t *CPUTimer) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t *CPUTimer) ElapsedInNano() float32 {
	return float32(t.Elapsed().Nanoseconds())
}

func (t *CPUTimer) ElapsedInMilli() float32 {
	return t.ElapsedInNano() / 1e6
}
