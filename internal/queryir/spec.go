package queryir

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/qset/internal/ir"
)

// OrderKey is one ORDER BY term. Field may be a relation path.
type OrderKey struct {
	Field string
	Desc  bool
}

// ParseOrder converts "-created" to a descending key and "name" or
// "+name" to an ascending one.
func ParseOrder(key string) OrderKey {
	switch {
	case strings.HasPrefix(key, "-"):
		return OrderKey{Field: key[1:], Desc: true}
	case strings.HasPrefix(key, "+"):
		return OrderKey{Field: key[1:]}
	default:
		return OrderKey{Field: key}
	}
}

// String renders the key in the "-field" form accepted by ParseOrder.
func (k OrderKey) String() string {
	if k.Desc {
		return "-" + k.Field
	}
	return k.Field
}

// Spec is the immutable accumulated state of a query-set: a predicate, an
// ordering, a row window and the related-prefetch flag.
//
// The zero value is valid: it matches every row, in unspecified order, with
// no window. Every derivation method returns a new Spec; the receiver is
// never modified, and unchanged parts (the predicate subtree, the ordering
// slice) are shared rather than copied.
type Spec struct {
	where   Predicate
	order   []OrderKey
	offset  int
	length  int
	bounded bool
	related bool
}

// NewSpec returns the spec of an unfiltered, unordered, unbounded set.
func NewSpec() Spec {
	return Spec{where: All{}}
}

// Where returns the predicate. It is never nil.
func (s Spec) Where() Predicate {
	return orAll(s.where)
}

// Order returns a copy of the ordering keys in priority order.
func (s Spec) Order() []OrderKey {
	return slices.Clone(s.order)
}

// Offset returns the window start.
func (s Spec) Offset() int { return s.offset }

// Length returns the window length and whether the window is bounded.
func (s Spec) Length() (int, bool) { return s.length, s.bounded }

// Related reports whether related objects are fetched with a join.
func (s Spec) Related() bool { return s.related }

// IsNone reports whether the spec can match no rows without asking the
// database: its predicate is Empty or its window has zero length.
func (s Spec) IsNone() bool {
	return IsEmpty(s.where) || (s.bounded && s.length == 0)
}

// Filter returns a spec whose predicate is the conjunction of the current
// one and p.
func (s Spec) Filter(p Predicate) Spec {
	out := s
	out.where = AndWith(s.Where(), p)
	return out
}

// Exclude returns a spec that additionally requires p to be false.
func (s Spec) Exclude(p Predicate) Spec {
	out := s
	out.where = AndWith(s.Where(), Negate(p))
	return out
}

// None returns a spec that matches nothing.
func (s Spec) None() Spec {
	out := s
	out.where = Empty{}
	return out
}

// OrderBy replaces the ordering. Keys use the ParseOrder syntax.
// Calling it with no keys clears the ordering.
func (s Spec) OrderBy(keys ...string) Spec {
	out := s
	out.order = nil
	for _, k := range keys {
		out.order = append(out.order, ParseOrder(k))
	}
	return out
}

// OrderByKeys is OrderBy for already-parsed keys.
func (s Spec) OrderByKeys(keys ...OrderKey) Spec {
	out := s
	out.order = slices.Clone(keys)
	return out
}

// Limit narrows the window.
//
// offset is relative to the current window start. When the current window
// is bounded, the new length is clamped so the window never extends past
// the current end. A negative length means "to the end of the current
// window" (or unbounded when there is none). A negative offset is treated
// as zero.
//
// Example: Limit(2, 3).Limit(1, 1) selects the same rows as Limit(3, 1).
func (s Spec) Limit(offset, length int) Spec {
	if offset < 0 {
		offset = 0
	}

	out := s
	out.offset = s.offset + offset

	if s.bounded {
		remaining := max(0, s.length-offset)
		if length < 0 || length > remaining {
			length = remaining
		}
		out.length, out.bounded = length, true
		return out
	}

	if length < 0 {
		out.length, out.bounded = 0, false
		return out
	}
	out.length, out.bounded = length, true
	return out
}

// SelectRelated returns a spec that fetches foreign-key targets in the
// same query.
func (s Spec) SelectRelated() Spec {
	out := s
	out.related = true
	return out
}

// Equal reports behavioural equality: every field compares equal.
func (s Spec) Equal(other Spec) bool {
	return Equal(s.Where(), other.Where()) &&
		slices.Equal(s.order, other.order) &&
		s.offset == other.offset &&
		s.bounded == other.bounded &&
		(!s.bounded || s.length == other.length) &&
		s.related == other.related
}

// Fingerprint returns a stable content hash of the spec. It fails only if
// a comparison value has no canonical JSON form.
func (s Spec) Fingerprint() (string, error) {
	return ir.Fingerprint(ir.DomainSpec, s.canonical())
}

func (s Spec) canonical() map[string]any {
	order := make([]any, len(s.order))
	for i, k := range s.order {
		order[i] = k.String()
	}
	var length any
	if s.bounded {
		length = int64(s.length)
	}
	return map[string]any{
		"where":   canonical(s.Where()),
		"order":   order,
		"offset":  int64(s.offset),
		"length":  length,
		"related": s.related,
	}
}

// String renders the spec for logs.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString("where=")
	b.WriteString(String(s.Where()))
	if len(s.order) > 0 {
		keys := make([]string, len(s.order))
		for i, k := range s.order {
			keys[i] = k.String()
		}
		b.WriteString(" order=")
		b.WriteString(strings.Join(keys, ","))
	}
	if s.offset > 0 || s.bounded {
		b.WriteString(" window=")
		b.WriteString(strconv.Itoa(s.offset))
		b.WriteString(":")
		if s.bounded {
			b.WriteString(strconv.Itoa(s.length))
		} else {
			b.WriteString("*")
		}
	}
	if s.related {
		b.WriteString(" related")
	}
	return b.String()
}
