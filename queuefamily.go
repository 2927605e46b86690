package vulkaninja

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// QueueClass is the capability class a queue family is selected for.
type QueueClass int

const (
	// QueueGeneral supports graphics, compute and transfer (and present when a
	// surface was given). It always exists on a valid Context.
	QueueGeneral QueueClass = iota
	QueueGraphics
	QueueCompute
	QueueTransfer
)

var queueClasses = [...]QueueClass{QueueGeneral, QueueGraphics, QueueCompute, QueueTransfer}

func (c QueueClass) String() string {
	switch c {
	case QueueGeneral:
		return "General"
	case QueueGraphics:
		return "Graphics"
	case QueueCompute:
		return "Compute"
	case QueueTransfer:
		return "Transfer"
	}
	return fmt.Sprintf("QueueClass(%d)", int(c))
}

type QueueFamilySlice []*QueueFamily

func (ql QueueFamilySlice) Filter(f func(q *QueueFamily) bool) QueueFamilySlice {
	ret := make([]*QueueFamily, 0)
	for _, q := range ql {
		if f(q) {
			ret = append(ret, q)
		}
	}
	return ret
}

type QueueFamily struct {
	Index                   int
	PhysicalDevice          *PhysicalDevice
	VKQueueFamilyProperties vk.QueueFamilyProperties
	// Present is true when the family can present to the surface the
	// families were queried with
	Present bool
}

func (q *QueueFamily) hasFlag(bit vk.QueueFlagBits) bool {
	return q.VKQueueFamilyProperties.QueueFlags&vk.QueueFlags(bit) == vk.QueueFlags(bit)
}

func (q *QueueFamily) IsCompute() bool {
	return q.hasFlag(vk.QueueComputeBit)
}

func (q *QueueFamily) IsGraphics() bool {
	return q.hasFlag(vk.QueueGraphicsBit)
}

func (q *QueueFamily) IsTransfer() bool {
	return q.hasFlag(vk.QueueTransferBit)
}

// QueueCount is the number of hardware queues in the family
func (q *QueueFamily) QueueCount() int {
	return int(q.VKQueueFamilyProperties.QueueCount)
}

func (q *QueueFamily) SupportsPresent(surface vk.Surface) bool {
	var supportsPresent vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(q.PhysicalDevice.VKPhysicalDevice, uint32(q.Index), surface, &supportsPresent)
	return supportsPresent == vk.True
}

func (q *QueueFamily) String() string {
	return fmt.Sprintf("{ Index: %d Compute: %v Graphics: %v Transfer: %v Present: %v Queues: %d }",
		q.Index, q.IsCompute(), q.IsGraphics(), q.IsTransfer(), q.Present, q.QueueCount())
}

// QueueSelection maps every capability class found on a device to its family.
type QueueSelection map[QueueClass]*QueueFamily

// Classes returns the selected classes in priority order.
func (s QueueSelection) Classes() []QueueClass {
	ret := make([]QueueClass, 0, len(s))
	for _, c := range queueClasses {
		if _, ok := s[c]; ok {
			ret = append(ret, c)
		}
	}
	return ret
}

// SelectQueueFamilies partitions the families into capability classes in one
// pass. A family claims at most one class and each class keeps the first
// family that matched it. When presentation is true, Present is required for
// the General and Graphics classes.
func SelectQueueFamilies(families QueueFamilySlice, presentation bool) (QueueSelection, error) {
	sel := make(QueueSelection)
	claim := func(c QueueClass, q *QueueFamily) bool {
		if _, ok := sel[c]; ok {
			return false
		}
		sel[c] = q
		return true
	}

	for _, q := range families {
		graphics, compute, transfer := q.IsGraphics(), q.IsCompute(), q.IsTransfer()
		present := !presentation || q.Present

		if graphics && compute && transfer && present && claim(QueueGeneral, q) {
			continue
		}
		if graphics && present && claim(QueueGraphics, q) {
			continue
		}
		if compute && claim(QueueCompute, q) {
			continue
		}
		if transfer {
			claim(QueueTransfer, q)
		}
	}

	if _, ok := sel[QueueGeneral]; !ok {
		return nil, errors.WithStack(ErrNoGeneralQueue)
	}
	return sel, nil
}
