package expense

import (
	"context"
	"strconv"
)

// Row is one result row with columns keyed by name.
type Row map[string]any

// Executor runs SQL against the receipts database. Execute takes a complete
// generated statement; Query runs fixed parameterized statements. Malformed
// SQL must surface as an error, never a partial result.
type Executor interface {
	Execute(ctx context.Context, sql string) ([]Row, error)
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
	Close() error
}

// Float coerces a row value into a float64, tolerating the numeric types pgx
// and JSON decoding produce. Missing or unparseable values read as zero.
func Float(r Row, key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Int coerces a row value into an int64.
func Int(r Row, key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// String coerces a row value into a string, empty when absent.
func String(r Row, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}
