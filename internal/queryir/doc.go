// Package queryir provides the query intermediate representation behind
// lazy query-sets: an immutable predicate tree for WHERE conditions and an
// immutable Spec that accumulates filters, ordering and a row window.
//
// ARCHITECTURE:
//
//	[caller chain] → [Spec + Predicate] → [querysql compiler] → [SQL + params]
//
// Nothing in this package touches a database. Every value is immutable:
// combinators and Spec derivations return new values and share unchanged
// subtrees, so a caller may hold and reuse any intermediate result.
//
// SEALED INTERFACE:
//
// Predicate is sealed with a marker method. Only the six node kinds in this
// package implement it:
//
//	Comparison  field <op> value
//	Not         NOT inner
//	And         left AND right
//	Or          left OR right
//	Empty       matches nothing
//	All         matches everything
//
// Backends switch over these exhaustively and reject anything else.
//
// THREE-VALUED LOGIC:
//
// Predicates compile to SQL and inherit SQL's NULL semantics. For a row
// whose column is NULL, both Eq(col, x) and Negate(Eq(col, x)) evaluate to
// NULL and the row is excluded either way. This is deliberate and is
// reported by Validate as a warning rather than rewritten.
package queryir
