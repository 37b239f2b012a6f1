package queryset

import (
	"sync"

	"github.com/google/uuid"
)

// cache is the result store shared by plain copies of a QuerySet.
//
// rows[i] is the object at window offset i. len(rows) is the high-water
// mark. exhausted is set once a fetch proves no row follows the last one.
// Both only advance after a fully successful fetch.
//
// Thread-safety: mu is held for the whole of a read, fetch included, so
// one fetch runs at a time.
type cache[T any] struct {
	id uuid.UUID

	mu        sync.Mutex
	rows      []T
	exhausted bool
	count     int
	counted   bool
}

func newCache[T any]() *cache[T] {
	return &cache[T]{id: uuid.Must(uuid.NewV7())}
}

// invalidate drops everything fetched so far.
func (c *cache[T]) invalidate() {
	c.rows = nil
	c.exhausted = false
	c.count = 0
	c.counted = false
}

// Stats is a snapshot of a cache, for diagnostics and tests.
type Stats struct {
	Fetched   int  // high-water mark
	Exhausted bool // no rows follow the last fetched one
	Counted   bool // a count is cached
}
