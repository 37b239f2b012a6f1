package queryset

import "context"

// Cursor is a position in a QuerySet. Moving it is free; Value fetches
// through the query-set's cache the same way At does.
//
// Cursors from different query-sets (different caches) are unrelated:
// Equal reports false and Distance is meaningless.
type Cursor[T any] struct {
	qs     QuerySet[T]
	offset int
}

// Offset returns the position relative to the window start.
func (c Cursor[T]) Offset() int { return c.offset }

// Next returns the cursor one step forward.
func (c Cursor[T]) Next() Cursor[T] { return c.Advance(1) }

// Prev returns the cursor one step back.
func (c Cursor[T]) Prev() Cursor[T] { return c.Advance(-1) }

// Advance returns the cursor n steps forward (back when n is negative).
func (c Cursor[T]) Advance(n int) Cursor[T] {
	c.offset += n
	return c
}

// Retreat returns the cursor n steps back.
func (c Cursor[T]) Retreat(n int) Cursor[T] { return c.Advance(-n) }

// Distance returns the number of steps from c to other.
func (c Cursor[T]) Distance(other Cursor[T]) int { return other.offset - c.offset }

// Equal reports whether both cursors share a cache and an offset.
func (c Cursor[T]) Equal(other Cursor[T]) bool {
	return c.qs.cache == other.qs.cache && c.offset == other.offset
}

// Less reports whether c is before other.
func (c Cursor[T]) Less(other Cursor[T]) bool { return c.offset < other.offset }

// Value returns the object under the cursor. Past either end it fails
// with ErrIndexOutOfRange.
func (c Cursor[T]) Value(ctx context.Context) (T, error) {
	return c.qs.At(ctx, c.offset)
}
