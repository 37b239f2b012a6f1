// Package meta describes persisted record types: which table a model lives
// in, how its fields map to columns, its primary key and its foreign-key
// relations.
//
// The query packages treat a Registry as a read-only lookup. Models are
// registered once, usually from CUE definitions loaded by the compiler
// package, and never change afterwards.
//
// Record is the generic row representation used when no typed populator is
// supplied: a map from field name to decoded value, with related records
// nested under their foreign-key field when they were fetched with a join.
package meta
