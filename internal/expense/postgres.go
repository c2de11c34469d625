package expense

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresExecutor runs statements against the receipts schema in PostgreSQL.
type PostgresExecutor struct {
	pool *pgxpool.Pool
}

func NewPostgresExecutor(ctx context.Context, databaseURL string) (*PostgresExecutor, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initReceiptSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresExecutor{pool: pool}, nil
}

func initReceiptSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS receipts (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			merchant_name TEXT,
			merchant_address TEXT,
			merchant_phone TEXT,
			merchant_email TEXT,
			transaction_date DATE,
			subtotal_amount NUMERIC(12,2),
			tax_amount NUMERIC(12,2),
			total_amount NUMERIC(12,2),
			expense_category TEXT,
			payment_method TEXT,
			image_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_user_date ON receipts (user_id, transaction_date);`,
		`CREATE TABLE IF NOT EXISTS receipt_items (
			id SERIAL PRIMARY KEY,
			receipt_id INTEGER NOT NULL REFERENCES receipts(id),
			description TEXT,
			unit_price NUMERIC(12,2),
			quantity NUMERIC(12,2)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init receipt schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (e *PostgresExecutor) Execute(ctx context.Context, sql string) ([]Row, error) {
	return e.Query(ctx, sql)
}

func (e *PostgresExecutor) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	out, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func collectRows(rows pgx.Rows) ([]Row, error) {
	fields := rows.FieldDescriptions()
	out := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		r := make(Row, len(fields))
		for i, f := range fields {
			if i < len(values) {
				r[string(f.Name)] = values[i]
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (e *PostgresExecutor) Close() error {
	e.pool.Close()
	return nil
}
