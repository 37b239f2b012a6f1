// Package queryset implements lazy, chainable query-sets over one model.
//
// A QuerySet holds an immutable queryir.Spec and a pointer to a result
// cache. Chaining (Filter, Exclude, OrderBy, Limit, ...) returns a new
// QuerySet with a fresh, empty cache; the receiver is never changed.
// Plain copies of a QuerySet share its cache, so a fetch through one copy
// is visible through the others.
//
// Nothing touches the database until a read: Count, Exists, At, Size,
// Iter, Get, Values, Update, Remove. Rows are fetched in pages and
// appended to the cache; index i is fetched at most once per cache.
//
// Key invariants:
//   - A spec matching nothing (None, zero-length window) never executes
//   - The cache only advances after a successful fetch and population
//   - Count reflects the window: clamp(total − offset, 0, length)
package queryset
