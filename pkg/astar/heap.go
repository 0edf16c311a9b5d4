package astar

// MinHeap is a concrete-typed min-heap keyed by float64 priority: a plain
// slice plus sift up/down, avoiding the interface-boxing overhead of
// container/heap. Keyed by an opaque cell key rather than a dense integer
// id since the grid is sparse and unbounded.
type MinHeap struct {
	items []heapItem
}

type heapItem struct {
	key      cellKey
	priority float64
	gCost    float64
	dir      int8 // incoming direction index, -1 if none (start node)
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(it heapItem) {
	h.items = append(h.items, it)
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() heapItem {
	n := len(h.items)
	it := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return it
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].priority >= h.items[parent].priority {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.items[left].priority < h.items[smallest].priority {
			smallest = left
		}
		if right < n && h.items[right].priority < h.items[smallest].priority {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
