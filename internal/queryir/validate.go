package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult reports problems found in a Spec.
//
// Errors make the spec uncompilable. Warnings flag constructs that compile
// and run but whose SQL semantics often surprise callers.
type ValidationResult struct {
	// Errors lists problems that would make compilation fail.
	Errors []string

	// Warnings lists legal but suspicious constructs.
	Warnings []string
}

// OK reports whether the spec has no errors. Warnings do not count.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate inspects a spec without consulting any model metadata.
//
// Rules:
//  1. Order keys must name a field.
//  2. A field may appear at most once in the ordering.
//  3. Negated comparisons are reported as warnings: under SQL's
//     three-valued logic a row whose column is NULL satisfies neither
//     the comparison nor its negation.
//
// Validate is a pure function with no side effects.
func Validate(spec Spec) ValidationResult {
	v := &validator{}
	v.validateOrder(spec.order)
	v.validatePredicate(spec.Where(), false)
	return ValidationResult{Errors: v.errors, Warnings: v.warnings}
}

type validator struct {
	errors   []string
	warnings []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateOrder(keys []OrderKey) {
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		name := strings.TrimSpace(k.Field)
		if name == "" {
			v.addError("order key %d has no field name", i)
			continue
		}
		if seen[name] {
			v.addError("field %q appears more than once in the ordering", name)
		}
		seen[name] = true
	}
}

// validatePredicate walks the tree. negated is true below an odd number
// of Not nodes.
func (v *validator) validatePredicate(p Predicate, negated bool) {
	switch n := p.(type) {
	case Comparison:
		if negated && n.Op != OpIsNull && n.Op != OpIsNotNull {
			v.addWarning("negated comparison on %q excludes rows where %q is NULL", n.Field, n.Field)
		}
	case Not:
		v.validatePredicate(n.Inner, !negated)
	case And:
		v.validatePredicate(n.Left, negated)
		v.validatePredicate(n.Right, negated)
	case Or:
		v.validatePredicate(n.Left, negated)
		v.validatePredicate(n.Right, negated)
	case Empty, All:
	default:
		v.addError("unknown predicate type %T", p)
	}
}
