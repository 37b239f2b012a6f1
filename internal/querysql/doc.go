// Package querysql compiles query specifications into parameterised SQL.
//
// Compilation is a pure function of its inputs: the same model, spec and
// dialect always produce the same text and the same parameter order, and a
// Compiler is safe for concurrent use. Values are never interpolated into
// the text; the only literals emitted are window sizes.
//
// Field references are resolved through a Registry. A reference may cross
// foreign keys with "__" ("author__name"); each distinct relation path is
// joined once, aliased T0, T1, ... in first-reference order.
package querysql
