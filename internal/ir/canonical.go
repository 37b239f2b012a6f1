package ir

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON.
//
// It is the only serialization used for fingerprints and golden snapshots,
// so the output for equal inputs must be byte-identical.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are written literally)
//  3. Strings are NFC normalized
//  4. Floats use the shortest round-trip form; NaN and ±Inf are errors
//
// Supported inputs: nil, bool, string, all integer widths, float32/64,
// []byte and time.Time (via Normalize), []any, []string, map[string]any
// and any slice or string-keyed map reachable through reflection.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, Normalize(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("non-finite float has no JSON form: %v", val)
		}
		if val == math.Trunc(val) && math.Abs(val) < 1e21 {
			buf.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
		} else {
			buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		}
	case string:
		writeCanonicalString(buf, val)
	case []any:
		return marshalCanonicalArray(buf, len(val), func(i int) any { return val[i] })
	case []string:
		return marshalCanonicalArray(buf, len(val), func(i int) any { return val[i] })
	case map[string]any:
		return marshalCanonicalObject(buf, val)
	default:
		return marshalReflect(buf, v)
	}
	return nil
}

// marshalReflect handles named slice and map types (e.g. meta.Record).
func marshalReflect(buf *bytes.Buffer, v any) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		writeCanonicalString(buf, rv.String())
		return nil
	case reflect.Bool:
		return marshalCanonical(buf, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return marshalCanonical(buf, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return marshalCanonical(buf, int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return marshalCanonical(buf, rv.Float())
	case reflect.Slice, reflect.Array:
		return marshalCanonicalArray(buf, rv.Len(), func(i int) any {
			return Normalize(rv.Index(i).Interface())
		})
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type for canonical JSON: %s", rv.Type().Key())
		}
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = iter.Value().Interface()
		}
		return marshalCanonicalObject(buf, obj)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalArray(buf *bytes.Buffer, n int, at func(int) any) error {
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonical(buf, Normalize(at(i))); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := SortedKeys(obj)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonicalString(buf, k)
		buf.WriteByte(':')
		if err := marshalCanonical(buf, Normalize(obj[k])); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeCanonicalString escapes only what RFC 8785 requires: quote,
// backslash and control characters below U+0020.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

// SortedKeys returns map keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for characters
// outside the Basic Multilingual Plane.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
