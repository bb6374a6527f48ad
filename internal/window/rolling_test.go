package window

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(minute time.Time, total float64) Entry {
	return Entry{
		Label:  minute.Format(LabelLayout),
		Minute: minute,
		Values: map[string]float64{"total": total},
	}
}

func TestRollingKeepsLastSixty(t *testing.T) {
	w := NewRolling(DefaultCapacity)
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 75; i++ {
		w.Push(entryAt(start.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	entries := w.Entries()
	require.Len(t, entries, DefaultCapacity)
	assert.Equal(t, DefaultCapacity, w.Len())
	assert.Equal(t, fmt.Sprintf("%02d:%02d", 9, 15), entries[0].Label)
	assert.Equal(t, "10:14", entries[len(entries)-1].Label)

	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i].Minute.After(entries[i-1].Minute))
	}
}

func TestRollingEntriesAreCopies(t *testing.T) {
	w := NewRolling(2)
	w.Push(entryAt(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 1))

	entries := w.Entries()
	entries[0].Values["total"] = 99

	again := w.Entries()
	assert.Equal(t, 1.0, again[0].Values["total"])
}
