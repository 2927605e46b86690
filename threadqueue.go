package vulkaninja

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ThreadID identifies a caller which owns queues. Goroutines have no stable
// identity, so each worker that submits work allocates one with NewThreadID
// and passes it along.
type ThreadID uint64

// MainThread is the id used by the goroutine that created the Context.
const MainThread ThreadID = 0

var lastThreadID atomic.Uint64

// NewThreadID returns an id that has never been handed out before.
func NewThreadID() ThreadID {
	return ThreadID(lastThreadID.Add(1))
}

// ThreadQueue is a hardware queue and its command pool, bound to the first
// ThreadID that asked for it.
type ThreadQueue struct {
	Queue       *Queue
	CommandPool *CommandPool

	table *queueTable
	owner ThreadID
	bound bool
}

// Owner returns the bound id, ok is false while the slot is free.
func (t *ThreadQueue) Owner() (ThreadID, bool) {
	if t.table != nil {
		t.table.mu.Lock()
		defer t.table.mu.Unlock()
	}
	return t.owner, t.bound
}

// queueTable holds every slot of one queue class. Bindings are permanent.
type queueTable struct {
	mu    sync.Mutex
	slots []*ThreadQueue
}

func (t *queueTable) add(q *ThreadQueue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q.table = t
	t.slots = append(t.slots, q)
}

func (t *queueTable) acquire(tid ThreadID) (*ThreadQueue, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.slots {
		if s.bound && s.owner == tid {
			return s, false, nil
		}
	}
	for _, s := range t.slots {
		if !s.bound {
			s.owner = tid
			s.bound = true
			return s, true, nil
		}
	}
	return nil, false, errors.WithStack(ErrNoFreeQueue)
}

func (t *queueTable) destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.slots {
		if s.CommandPool != nil {
			s.CommandPool.Destroy()
		}
	}
	t.slots = nil
}
