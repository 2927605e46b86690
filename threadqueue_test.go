package vulkaninja

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueueTable(n int) *queueTable {
	table := &queueTable{}
	for i := 0; i < n; i++ {
		table.add(&ThreadQueue{})
	}
	return table
}

func TestNewThreadIDUnique(t *testing.T) {
	a, b := NewThreadID(), NewThreadID()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, MainThread, a)
}

func TestQueueTableBindsConcurrently(t *testing.T) {
	const workers = 4
	table := testQueueTable(workers)

	ids := make([]ThreadID, workers)
	for i := range ids {
		ids[i] = NewThreadID()
	}

	got := make([]*ThreadQueue, workers)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q, _, err := table.acquire(ids[i])
				if err != nil {
					return
				}
				if got[i] == nil {
					got[i] = q
				} else if got[i] != q {
					got[i] = nil
					return
				}
			}
		}(i)
	}
	wg.Wait()

	seen := map[*ThreadQueue]bool{}
	for i, q := range got {
		require.NotNil(t, q, "worker %d lost its queue", i)
		assert.False(t, seen[q], "queue shared by two workers")
		seen[q] = true

		owner, ok := q.Owner()
		assert.True(t, ok)
		assert.Equal(t, ids[i], owner)
	}

	_, _, err := table.acquire(NewThreadID())
	assert.True(t, errors.Is(err, ErrNoFreeQueue))
}

func TestQueueTableRebind(t *testing.T) {
	table := testQueueTable(1)
	tid := NewThreadID()

	q, bound, err := table.acquire(tid)
	require.NoError(t, err)
	assert.True(t, bound)

	again, bound, err := table.acquire(tid)
	require.NoError(t, err)
	assert.False(t, bound)
	assert.Same(t, q, again)
}

func TestThreadQueueOwnerWhileBinding(t *testing.T) {
	table := testQueueTable(2)
	q := table.slots[0]

	_, ok := q.Owner()
	assert.False(t, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2; i++ {
			_, _, _ = table.acquire(NewThreadID())
		}
	}()
	for i := 0; i < 100; i++ {
		q.Owner()
	}
	<-done

	_, ok = q.Owner()
	assert.True(t, ok)
}
