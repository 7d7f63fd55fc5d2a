package vecmath

// Scored pairs an item with its similarity score.
type Scored[T any] struct {
	Score float64
	Item  T
}

// TopK keeps the k best-scoring items seen so far in descending order.
// A new item is compared against the current worst; when accepted it
// replaces the worst and bubbles up into position, so a full pass over N
// items costs O(N*k) without sorting the whole input.
type TopK[T any] struct {
	k     int
	items []Scored[T]
}

// NewTopK returns a selector of capacity k. A non-positive k keeps nothing.
func NewTopK[T any](k int) *TopK[T] {
	if k < 0 {
		k = 0
	}
	return &TopK[T]{k: k, items: make([]Scored[T], 0, min(k, 1024))}
}

// Push offers an item and reports whether it was kept.
func (t *TopK[T]) Push(score float64, item T) bool {
	if t.k == 0 {
		return false
	}
	if len(t.items) < t.k {
		t.items = append(t.items, Scored[T]{Score: score, Item: item})
	} else {
		if score <= t.items[len(t.items)-1].Score {
			return false
		}
		t.items[len(t.items)-1] = Scored[T]{Score: score, Item: item}
	}
	for p := len(t.items) - 1; p > 0 && t.items[p].Score > t.items[p-1].Score; p-- {
		t.items[p], t.items[p-1] = t.items[p-1], t.items[p]
	}
	return true
}

// Len returns the number of items kept.
func (t *TopK[T]) Len() int {
	return len(t.items)
}

// Items returns the kept items, best first. The slice is owned by the selector.
func (t *TopK[T]) Items() []Scored[T] {
	return t.items
}
