package sketch

import (
	"container/heap"
	"sort"
)

// Item is one top-K candidate and its approximate count.
type Item struct {
	Value string
	Count uint64
}

type topKHeap struct {
	items []*Item
	index map[string]int
}

func (h *topKHeap) Len() int { return len(h.items) }

// Less orders by count, breaking ties so the lexically largest value is
// evicted first.
func (h *topKHeap) Less(i, j int) bool {
	if h.items[i].Count != h.items[j].Count {
		return h.items[i].Count < h.items[j].Count
	}
	return h.items[i].Value > h.items[j].Value
}

func (h *topKHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.index[h.items[i].Value] = i
	h.index[h.items[j].Value] = j
}

func (h *topKHeap) Push(x any) {
	it := x.(*Item)
	h.index[it.Value] = len(h.items)
	h.items = append(h.items, it)
}

func (h *topKHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	delete(h.index, it.Value)
	return it
}

// TopK keeps the k values with the highest counts seen so far in a min-heap.
// A value enters a full heap only when its count exceeds the heap minimum.
type TopK struct {
	k int
	h topKHeap
}

// NewTopK creates an empty heap of width k.
func NewTopK(k int) *TopK {
	return &TopK{
		k: k,
		h: topKHeap{items: make([]*Item, 0, k), index: make(map[string]int, k)},
	}
}

// Offer reports the latest count estimate for v. The slice is copied only when
// the value is admitted.
func (t *TopK) Offer(v []byte, count uint64) {
	if t.k <= 0 {
		return
	}
	if i, ok := t.h.index[string(v)]; ok {
		if count > t.h.items[i].Count {
			t.h.items[i].Count = count
			heap.Fix(&t.h, i)
		}
		return
	}
	if t.h.Len() < t.k {
		heap.Push(&t.h, &Item{Value: string(v), Count: count})
		return
	}
	if count > t.h.items[0].Count {
		heap.Pop(&t.h)
		heap.Push(&t.h, &Item{Value: string(v), Count: count})
	}
}

// Min returns the smallest count in a full heap, or zero.
func (t *TopK) Min() uint64 {
	if t.h.Len() < t.k || t.h.Len() == 0 {
		return 0
	}
	return t.h.items[0].Count
}

// Len returns the number of tracked candidates.
func (t *TopK) Len() int { return t.h.Len() }

// Items returns the candidates ordered by count descending, then value
// ascending.
func (t *TopK) Items() []Item {
	out := make([]Item, 0, t.h.Len())
	for _, it := range t.h.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
