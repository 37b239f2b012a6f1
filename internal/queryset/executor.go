package queryset

import (
	"context"
)

// Executor runs compiled statements. A row is the column values in select
// order, as the driver returns them.
//
// Implementations should not retry; failures are surfaced to the caller
// unchanged.
type Executor interface {
	Query(ctx context.Context, sql string, params []any) ([][]any, error)
	Exec(ctx context.Context, sql string, params []any) (int64, error)
}
