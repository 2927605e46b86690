package vulkaninja

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Configuration errors, returned while building a context or a resource.
var (
	ErrNoPhysicalDevice      = errors.New("no physical device found")
	ErrNoGeneralQueue        = errors.New("failed to find general queue family")
	ErrQueueClassUnavailable = errors.New("no queue family for queue class")
	ErrMissingExtension      = errors.New("device extension not supported")
	ErrBindingMismatch       = errors.New("binding does not match")
	ErrUnknownDescriptor     = errors.New("unknown descriptor name")
	ErrNoMemoryType          = errors.New("no matching memory type found")
	ErrExtensionProcs        = errors.New("device extension procedures not available")
	ErrPipelineKind          = errors.New("operation not supported by pipeline kind")
	ErrFeatureDisabled       = errors.New("device feature not enabled")
)

// Resource contract violations. These are checked before any GPU work is
// issued so the resource is left untouched.
var (
	ErrNotHostVisible         = errors.New("buffer is not host visible")
	ErrHostVisible            = errors.New("buffer is host visible")
	ErrBufferTooSmall         = errors.New("data does not fit in buffer")
	ErrPrimitiveCountExceeded = errors.New("triangle count exceeds reserved maximum")
	ErrInstanceCountChanged   = errors.New("instance count was changed")
	ErrTimerState             = errors.New("timer is not in the expected state")
)

// Runtime failures.
var (
	ErrNoFreeQueue  = errors.New("failed to get new queue")
	ErrFenceWait    = errors.New("failed to wait for fence")
	ErrQueryResults = errors.New("failed to get query results")
)

// vkErr turns a Vulkan result into an error annotated with the failing call.
func vkErr(res vk.Result, msg string) error {
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, msg)
	}
	return nil
}
