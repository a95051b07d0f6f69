package sim

import "container/heap"

// event is one pending agent action: the moment its current plan leg
// (moving or sensing) finishes, or — when Init is set — the moment it
// should first set out.
type event struct {
	time    float64
	seq     int // insertion order, the tie-break for equal times
	agentID int
	init    bool
	index   int // heap.Interface bookkeeping
}

// eventHeap is a time-then-insertion-order min-heap of pending events,
// shaped directly after the teacher's own heap.Interface implementations
// for its search-algorithm priority queues.
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

var _ heap.Interface = (*eventHeap)(nil)
