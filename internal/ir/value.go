package ir

import (
	"fmt"
	"time"
)

// Normalize converts a raw value returned by a database/sql or pgx driver
// into a value with a stable JSON form.
//
// Conversions:
//   - []byte becomes string (SQLite and MySQL return TEXT as bytes)
//   - every signed and unsigned integer width becomes int64
//   - float32 becomes float64
//   - time.Time becomes an RFC 3339 string in UTC
//
// nil, bool, int64, float64 and string pass through unchanged. Any other
// type is returned as-is; MarshalCanonical reports it later if it has no
// canonical form.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// NormalizeRow applies Normalize to every column of a row in place and
// returns the row for chaining.
func NormalizeRow(row []any) []any {
	for i, v := range row {
		row[i] = Normalize(v)
	}
	return row
}

// AsInt64 converts a normalised numeric value to int64.
// COUNT(*) comes back as int64 from SQLite and Postgres but as []byte or
// uint64 from some MySQL configurations.
func AsInt64(v any) (int64, error) {
	switch val := Normalize(v).(type) {
	case int64:
		return val, nil
	case float64:
		return int64(val), nil
	case string:
		var n int64
		if _, err := fmt.Sscan(val, &n); err != nil {
			return 0, fmt.Errorf("not an integer: %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}
