package queryir

import (
	"fmt"
	"reflect"
	"strings"
)

// Predicate represents a WHERE condition.
//
// This is a sealed interface - only types in this package implement it.
// Values are immutable; combinators return new nodes that share the
// operands instead of copying them.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Comparison compares one field against a value.
//
// Field is a model field name or a relation path such as "author__name";
// the compiler resolves it to a table-qualified column. Value holds:
//   - nil for IS NULL / IS NOT NULL
//   - []any for IN
//   - []any{low, high} for RANGE
//   - string for the text operators
//   - a scalar otherwise
type Comparison struct {
	Field string
	Op    Operator
	Value any
}

func (Comparison) predicateNode() {}

// Not negates its inner predicate.
type Not struct {
	Inner Predicate
}

func (Not) predicateNode() {}

// And is true when both operands are true.
type And struct {
	Left  Predicate
	Right Predicate
}

func (And) predicateNode() {}

// Or is true when either operand is true.
type Or struct {
	Left  Predicate
	Right Predicate
}

func (Or) predicateNode() {}

// Empty matches no rows. A query-set whose predicate is Empty never
// reaches the database.
type Empty struct{}

func (Empty) predicateNode() {}

// All matches every row. It is the predicate of an unfiltered set.
type All struct{}

func (All) predicateNode() {}

// Compare builds a Comparison after validating the operator and the shape
// of value. Failures wrap ErrInvalidPredicate.
func Compare(field string, op Operator, value any) (Predicate, error) {
	if strings.TrimSpace(field) == "" {
		return nil, &PredicateError{Field: field, Operator: op, Message: "field name is empty"}
	}
	if !op.Valid() {
		return nil, &PredicateError{Field: field, Operator: op, Message: "unsupported operator"}
	}

	switch {
	case !op.TakesValue():
		value = nil

	case op == OpIn:
		list, ok := toList(value)
		if !ok {
			return nil, &PredicateError{Field: field, Operator: op, Message: fmt.Sprintf("IN requires a list, got %T", value)}
		}
		value = list

	case op == OpRange:
		list, ok := toList(value)
		if !ok || len(list) != 2 {
			return nil, &PredicateError{Field: field, Operator: op, Message: "RANGE requires a [low, high] pair"}
		}
		if list[0] == nil || list[1] == nil {
			return nil, &PredicateError{Field: field, Operator: op, Message: "RANGE bounds must not be null"}
		}
		value = list

	case op.IsText():
		if _, ok := value.(string); !ok {
			return nil, &PredicateError{Field: field, Operator: op, Message: fmt.Sprintf("requires a string, got %T", value)}
		}

	case op.IsOrdering():
		if value == nil {
			return nil, &PredicateError{Field: field, Operator: op, Message: "cannot order against null"}
		}
		if _, ok := toList(value); ok {
			return nil, &PredicateError{Field: field, Operator: op, Message: "cannot order against a list"}
		}

	default:
		if _, ok := toList(value); ok {
			return nil, &PredicateError{Field: field, Operator: op, Message: "use IN to compare against a list"}
		}
	}

	return Comparison{Field: field, Op: op, Value: value}, nil
}

// MustCompare is like Compare but panics on an invalid comparison.
// Intended for literals written in code, where the failure is a bug.
func MustCompare(field string, op Operator, value any) Predicate {
	p, err := Compare(field, op, value)
	if err != nil {
		panic(err)
	}
	return p
}

// toList copies any slice or array (other than []byte) into a fresh []any
// so that callers cannot mutate a constructed predicate afterwards.
func toList(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if _, isBytes := value.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// The constructors below build comparisons from values written in code.
// Like MustCompare they panic where Compare would return an error, such as
// an empty field name or a null bound on an ordering. Use Compare or Lookup
// for input that is not known to be valid.

// Eq matches rows where field equals value. A nil value compiles to IS NULL.
func Eq(field string, value any) Predicate { return MustCompare(field, OpEq, value) }

// NotEq matches rows where field differs from value. A nil value compiles
// to IS NOT NULL.
func NotEq(field string, value any) Predicate { return MustCompare(field, OpNotEq, value) }

// Lt, Lte, Gt and Gte compare field against value. They panic on a nil
// or list value.
func Lt(field string, value any) Predicate  { return MustCompare(field, OpLt, value) }
func Lte(field string, value any) Predicate { return MustCompare(field, OpLte, value) }
func Gt(field string, value any) Predicate  { return MustCompare(field, OpGt, value) }
func Gte(field string, value any) Predicate { return MustCompare(field, OpGte, value) }

// Like matches a raw LIKE pattern; % and _ keep their wildcard meaning.
func Like(field, pattern string) Predicate  { return MustCompare(field, OpLike, pattern) }
func ILike(field, pattern string) Predicate { return MustCompare(field, OpILike, pattern) }

// IExact matches field case-insensitively against s, with no wildcards.
func IExact(field, s string) Predicate { return MustCompare(field, OpIExact, s) }

// In matches rows whose field is one of values. An empty list matches nothing.
func In(field string, values ...any) Predicate {
	if values == nil {
		values = []any{}
	}
	return MustCompare(field, OpIn, values)
}

// IsNull and IsNotNull test field for NULL. They panic on an empty field.
func IsNull(field string) Predicate    { return MustCompare(field, OpIsNull, nil) }
func IsNotNull(field string) Predicate { return MustCompare(field, OpIsNotNull, nil) }

// StartsWith and friends match literal substrings; wildcard characters in
// s are escaped by the compiler.
func StartsWith(field, s string) Predicate  { return MustCompare(field, OpStartsWith, s) }
func IStartsWith(field, s string) Predicate { return MustCompare(field, OpIStartsWith, s) }
func EndsWith(field, s string) Predicate    { return MustCompare(field, OpEndsWith, s) }
func IEndsWith(field, s string) Predicate   { return MustCompare(field, OpIEndsWith, s) }
func Contains(field, s string) Predicate    { return MustCompare(field, OpContains, s) }
func IContains(field, s string) Predicate   { return MustCompare(field, OpIContains, s) }

// Range matches low <= field <= high.
func Range(field string, low, high any) Predicate {
	return MustCompare(field, OpRange, []any{low, high})
}

// AndWith returns the conjunction of a and b.
//
// All is the identity (All ∧ x = x) and Empty annihilates (Empty ∧ x =
// Empty), which keeps compiled fragments minimal and lets an Empty set stay
// Empty through further filtering. A nil operand is treated as All.
func AndWith(a, b Predicate) Predicate {
	a, b = orAll(a), orAll(b)
	switch {
	case isAll(a):
		return b
	case isAll(b):
		return a
	case isEmpty(a) || isEmpty(b):
		return Empty{}
	}
	return And{Left: a, Right: b}
}

// OrWith returns the disjunction of a and b.
//
// Empty is the identity (Empty ∨ x = x) and All annihilates (All ∨ x = All).
// A nil operand is treated as All.
func OrWith(a, b Predicate) Predicate {
	a, b = orAll(a), orAll(b)
	switch {
	case isEmpty(a):
		return b
	case isEmpty(b):
		return a
	case isAll(a) || isAll(b):
		return All{}
	}
	return Or{Left: a, Right: b}
}

// Negate wraps p in Not. Double negation is preserved as written.
func Negate(p Predicate) Predicate {
	return Not{Inner: orAll(p)}
}

func orAll(p Predicate) Predicate {
	if p == nil {
		return All{}
	}
	return p
}

func isAll(p Predicate) bool {
	_, ok := p.(All)
	return ok
}

func isEmpty(p Predicate) bool {
	_, ok := p.(Empty)
	return ok
}

// IsAll reports whether p matches everything without a condition.
func IsAll(p Predicate) bool { return p == nil || isAll(p) }

// IsEmpty reports whether p is the Empty predicate.
func IsEmpty(p Predicate) bool { return p != nil && isEmpty(p) }

// Equal compares two predicate trees structurally.
// Trees that are logically equivalent but shaped differently are not equal.
func Equal(a, b Predicate) bool {
	a, b = orAll(a), orAll(b)
	switch x := a.(type) {
	case Comparison:
		y, ok := b.(Comparison)
		return ok && x.Field == y.Field && x.Op == y.Op && reflect.DeepEqual(x.Value, y.Value)
	case Not:
		y, ok := b.(Not)
		return ok && Equal(x.Inner, y.Inner)
	case And:
		y, ok := b.(And)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case Or:
		y, ok := b.(Or)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case Empty:
		return isEmpty(b)
	case All:
		return isAll(b)
	default:
		return false
	}
}

// String renders p for logs and error messages. The output is not SQL.
func String(p Predicate) string {
	switch n := orAll(p).(type) {
	case Comparison:
		if !n.Op.TakesValue() {
			return fmt.Sprintf("%s %s", n.Field, n.Op)
		}
		return fmt.Sprintf("%s %s %#v", n.Field, n.Op, n.Value)
	case Not:
		return "NOT (" + String(n.Inner) + ")"
	case And:
		return "(" + String(n.Left) + " AND " + String(n.Right) + ")"
	case Or:
		return "(" + String(n.Left) + " OR " + String(n.Right) + ")"
	case Empty:
		return "EMPTY"
	case All:
		return "ALL"
	default:
		return fmt.Sprintf("<unknown %T>", p)
	}
}

// Fields returns every field referenced by p in left-to-right order,
// duplicates included.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch n := p.(type) {
		case Comparison:
			out = append(out, n.Field)
		case Not:
			walk(n.Inner)
		case And:
			walk(n.Left)
			walk(n.Right)
		case Or:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(orAll(p))
	return out
}

// canonical converts p to a map/slice tree for ir.MarshalCanonical.
func canonical(p Predicate) any {
	switch n := orAll(p).(type) {
	case Comparison:
		return map[string]any{"kind": "cmp", "field": n.Field, "op": string(n.Op), "value": n.Value}
	case Not:
		return map[string]any{"kind": "not", "inner": canonical(n.Inner)}
	case And:
		return map[string]any{"kind": "and", "left": canonical(n.Left), "right": canonical(n.Right)}
	case Or:
		return map[string]any{"kind": "or", "left": canonical(n.Left), "right": canonical(n.Right)}
	case Empty:
		return map[string]any{"kind": "empty"}
	default:
		return map[string]any{"kind": "all"}
	}
}
