package vulkaninja

import (
	"math"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// FenceCreateInfo configures CreateFence
type FenceCreateInfo struct {
	Signaled bool
}

type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

func (d *Device) VKCreateFence(signaled bool) (vk.Fence, error) {
	var fence vk.Fence
	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	err := vkErr(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence), "create fence")
	if err != nil {
		return vk.NullFence, err
	}
	return fence, nil
}

func (d *Device) CreateFence(info FenceCreateInfo) (*Fence, error) {
	fence, err := d.VKCreateFence(info.Signaled)
	if err != nil {
		return nil, err
	}
	return &Fence{Device: d, VKFence: fence}, nil
}

func (d *Device) WaitForFences(waitForAll bool, ts time.Duration, fences ...*Fence) error {
	f := make([]vk.Fence, len(fences))
	for i := range fences {
		f[i] = fences[i].VKFence
	}

	var wait vk.Bool32
	if waitForAll {
		wait = vk.True
	} else {
		wait = vk.False
	}

	timeout := uint64(math.MaxUint64)
	if ts >= 0 {
		timeout = uint64(ts.Nanoseconds())
	}

	res := vk.WaitForFences(d.VKDevice, uint32(len(fences)), f, wait, timeout)
	if res != vk.Success {
		return errors.Wrapf(ErrFenceWait, "result %d", res)
	}
	return nil
}

// Wait blocks until the fence is signaled. Any result other than success is
// an error.
func (f *Fence) Wait() error {
	return f.Device.WaitForFences(true, -1, f)
}

func (f *Fence) Reset() error {
	return vkErr(vk.ResetFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}), "reset fence")
}

// Finished reports whether the fence is signaled without blocking
func (f *Fence) Finished() bool {
	return vk.GetFenceStatus(f.Device.VKDevice, f.VKFence) == vk.Success
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}
