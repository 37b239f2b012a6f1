package queryir

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// lookupSuffixes maps the "field__suffix" lookup names to operators.
var lookupSuffixes = map[string]Operator{
	"exact":       OpEq,
	"iexact":      OpIExact,
	"ne":          OpNotEq,
	"lt":          OpLt,
	"lte":         OpLte,
	"gt":          OpGt,
	"gte":         OpGte,
	"in":          OpIn,
	"contains":    OpContains,
	"icontains":   OpIContains,
	"startswith":  OpStartsWith,
	"istartswith": OpIStartsWith,
	"endswith":    OpEndsWith,
	"iendswith":   OpIEndsWith,
	"range":       OpRange,
	"like":        OpLike,
	"ilike":       OpILike,
}

// Lookup builds a comparison from a lookup expression such as "age__gte"
// or "author__name__istartswith".
//
// The last "__" segment selects the operator when it names one; otherwise
// the whole expression is the field and the operator is equality. The
// special suffix "isnull" takes a boolean (or "true"/"false") and yields IS
// NULL or IS NOT NULL.
//
// String values are split on commas for "in" and "range", so command-line
// input like "in=1,2,3" works without extra parsing. Each element is typed
// with ParseScalar.
func Lookup(expr string, value any) (Predicate, error) {
	field, suffix := splitLookup(expr)

	if suffix == "isnull" {
		isNull, err := lookupBool(value)
		if err != nil {
			return nil, &PredicateError{Field: field, Message: err.Error()}
		}
		if isNull {
			return Compare(field, OpIsNull, nil)
		}
		return Compare(field, OpIsNotNull, nil)
	}

	op, ok := lookupSuffixes[suffix]
	if !ok {
		field, op = expr, OpEq
	}

	if s, isString := value.(string); isString && (op == OpIn || op == OpRange) {
		parts := strings.Split(s, ",")
		list := make([]any, 0, len(parts))
		for _, part := range parts {
			list = append(list, ParseScalar(strings.TrimSpace(part)))
		}
		if s == "" {
			list = list[:0]
		}
		value = list
	}

	return Compare(field, op, value)
}

// ParseScalar types a raw text value: "null", "true" and "false" become nil
// and booleans, integers and floats become int64 and float64, and a
// double-quoted literal stays a string. Anything else is returned as is.
func ParseScalar(raw string) any {
	switch raw {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if len(raw) >= 2 && raw[0] == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// splitLookup separates "a__b__op" into ("a__b", "op").
// An expression without "__" has an empty suffix.
func splitLookup(expr string) (string, string) {
	i := strings.LastIndex(expr, "__")
	if i < 0 {
		return expr, ""
	}
	return expr[:i], expr[i+2:]
}

func lookupBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("isnull requires a boolean, got %v", value)
}

// Lookups builds the conjunction of one Lookup per entry, in key order so
// the result does not depend on map iteration. An empty map matches
// everything.
func Lookups(lookups map[string]any) (Predicate, error) {
	keys := make([]string, 0, len(lookups))
	for k := range lookups {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out Predicate = All{}
	for _, k := range keys {
		p, err := Lookup(k, lookups[k])
		if err != nil {
			return nil, err
		}
		out = AndWith(out, p)
	}
	return out, nil
}
