package window

// DefaultCapacity keeps one hour of minute entries.
const DefaultCapacity = 60

// Rolling holds the most recent closed minutes, oldest first. It is not
// safe for concurrent use; callers serialize access.
type Rolling struct {
	entries *ring[Entry]
}

func NewRolling(capacity int) *Rolling {
	return &Rolling{entries: newRing[Entry](capacity)}
}

// Push appends an entry, silently dropping the oldest when full.
func (w *Rolling) Push(e Entry) {
	w.entries.push(e.clone())
}

// Entries returns a copy of the window, oldest first.
func (w *Rolling) Entries() []Entry {
	items := w.entries.items()
	for i := range items {
		items[i] = items[i].clone()
	}

	return items
}

func (w *Rolling) Len() int {
	return w.entries.len()
}

func (w *Rolling) Capacity() int {
	return w.entries.capacity()
}
