package ranking

import (
	"container/heap"

	"github.com/roach88/hiscore/internal/model"
)

// topHeap is a min-heap of the best k entries seen so far. The root is the
// weakest entry: lowest score, and among equal scores the latest registration.
type topHeap []model.PlayerRecord

func (h topHeap) Len() int { return len(h) }

func (h topHeap) Less(i, j int) bool {
	if h[i].BestScore != h[j].BestScore {
		return h[i].BestScore < h[j].BestScore
	}
	return h[i].RegistryIndex > h[j].RegistryIndex
}

func (h topHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *topHeap) Push(x any) {
	*h = append(*h, x.(model.PlayerRecord))
}

func (h *topHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// outranks reports whether a beats b: higher score, or the same score and
// earlier registration.
func outranks(a, b model.PlayerRecord) bool {
	if a.BestScore != b.BestScore {
		return a.BestScore > b.BestScore
	}
	return a.RegistryIndex < b.RegistryIndex
}

// TopK returns the k best entries, best first. Ties go to the earlier
// registration. Runs in O(n log k) and never holds more than k entries.
//
// Returns an empty slice (not nil) when k is 0 or entries is empty.
func TopK(entries []model.PlayerRecord, k int) []model.PlayerRecord {
	if k <= 0 || len(entries) == 0 {
		return []model.PlayerRecord{}
	}
	if k > len(entries) {
		k = len(entries)
	}

	h := make(topHeap, 0, k)
	for _, e := range entries {
		if h.Len() < k {
			heap.Push(&h, e)
			continue
		}
		if outranks(e, h[0]) {
			h[0] = e
			heap.Fix(&h, 0)
		}
	}

	// Popping yields weakest first; fill from the back.
	out := make([]model.PlayerRecord, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(model.PlayerRecord)
	}
	return out
}

// Page returns entries[offset : offset+limit], clipped to the slice.
//
// Returns an empty slice (not nil) when offset is past the end.
func Page(entries []model.PlayerRecord, offset, limit uint64) []model.PlayerRecord {
	n := uint64(len(entries))
	if offset >= n || limit == 0 {
		return []model.PlayerRecord{}
	}
	end := n
	if limit < n-offset {
		end = offset + limit
	}
	out := make([]model.PlayerRecord, end-offset)
	copy(out, entries[offset:end])
	return out
}
