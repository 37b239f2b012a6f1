package queryir

// Operator identifies the comparison applied by a Comparison node.
type Operator string

const (
	OpEq          Operator = "="
	OpNotEq       Operator = "!="
	OpLt          Operator = "<"
	OpLte         Operator = "<="
	OpGt          Operator = ">"
	OpGte         Operator = ">="
	OpLike        Operator = "LIKE"  // caller-supplied pattern, case-sensitive
	OpILike       Operator = "ILIKE" // caller-supplied pattern, case-insensitive
	OpIExact      Operator = "IEXACT"
	OpIn          Operator = "IN"
	OpIsNull      Operator = "IS NULL"
	OpIsNotNull   Operator = "IS NOT NULL"
	OpStartsWith  Operator = "STARTS WITH"
	OpIStartsWith Operator = "ISTARTS WITH"
	OpEndsWith    Operator = "ENDS WITH"
	OpIEndsWith   Operator = "IENDS WITH"
	OpContains    Operator = "CONTAINS"
	OpIContains   Operator = "ICONTAINS"
	OpRange       Operator = "RANGE"
)

// operators lists every supported operator in declaration order.
var operators = []Operator{
	OpEq, OpNotEq, OpLt, OpLte, OpGt, OpGte,
	OpLike, OpILike, OpIExact, OpIn, OpIsNull, OpIsNotNull,
	OpStartsWith, OpIStartsWith, OpEndsWith, OpIEndsWith,
	OpContains, OpIContains, OpRange,
}

// Operators returns the supported operators in declaration order.
func Operators() []Operator {
	return append([]Operator(nil), operators...)
}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	for _, o := range operators {
		if o == op {
			return true
		}
	}
	return false
}

// IsText reports whether op matches a string pattern and therefore requires
// a string operand.
func (op Operator) IsText() bool {
	switch op {
	case OpLike, OpILike, OpIExact,
		OpStartsWith, OpIStartsWith,
		OpEndsWith, OpIEndsWith,
		OpContains, OpIContains:
		return true
	}
	return false
}

// CaseInsensitive reports whether op ignores letter case.
func (op Operator) CaseInsensitive() bool {
	switch op {
	case OpILike, OpIExact, OpIStartsWith, OpIEndsWith, OpIContains:
		return true
	}
	return false
}

// IsOrdering reports whether op is one of <, <=, >, >=.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// TakesValue reports whether op uses the Comparison value at all.
func (op Operator) TakesValue() bool {
	return op != OpIsNull && op != OpIsNotNull
}
