package asyncprim

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// timerTask is one entry in a Timer's dispatch queue. The heap itself orders
// by nextFireAt so the dispatcher can always sleep until the true earliest
// deadline, while priority is applied as a secondary selection among
// already-due entries (see Timer.popDue).
type timerTask struct {
	id         uuid.UUID
	priority   Priority
	nextFireAt time.Time
	delay      time.Duration
	remaining  int // -1: infinite; else count of firings left
	fn         func()
	seq        int64
	index      int // maintained by heap.Interface
}

type timerHeap []*timerTask

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].nextFireAt.Equal(h[j].nextFireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].nextFireAt.Before(h[j].nextFireAt)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*timerTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

var _ heap.Interface = (*timerHeap)(nil)
