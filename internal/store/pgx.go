package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/qset/internal/querysql"
)

// PgxExecutor runs statements on a native pgx connection pool. It
// satisfies the same executor contract as Store, with Postgres
// placeholders.
type PgxExecutor struct {
	pool *pgxpool.Pool
}

// OpenPgx creates a connection pool for dsn and verifies it.
func OpenPgx(ctx context.Context, dsn string) (*PgxExecutor, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PgxExecutor{pool: pool}, nil
}

// Close closes the pool.
func (p *PgxExecutor) Close() {
	p.pool.Close()
}

// Dialect returns querysql.Postgres.
func (p *PgxExecutor) Dialect() querysql.Dialect { return querysql.Postgres }

// Query runs a statement and returns every row as decoded pgx values.
func (p *PgxExecutor) Query(ctx context.Context, query string, params []any) ([][]any, error) {
	rows, err := p.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := [][]any{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Exec runs a statement and returns the number of rows it affected.
func (p *PgxExecutor) Exec(ctx context.Context, query string, params []any) (int64, error) {
	tag, err := p.pool.Exec(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return tag.RowsAffected(), nil
}
