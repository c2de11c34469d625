package expense

import (
	"context"
	"strings"
)

// StaticExecutor serves canned rows for local/dev use without a database.
// Every statement returns the same row set.
type StaticExecutor struct {
	Rows []Row
}

func NewStaticExecutor(rows []Row) *StaticExecutor {
	return &StaticExecutor{Rows: rows}
}

func (e *StaticExecutor) Execute(_ context.Context, _ string) ([]Row, error) {
	return e.copyRows(), nil
}

func (e *StaticExecutor) Query(_ context.Context, _ string, _ ...any) ([]Row, error) {
	return e.copyRows(), nil
}

func (e *StaticExecutor) copyRows() []Row {
	out := make([]Row, len(e.Rows))
	for i, r := range e.Rows {
		c := make(Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

func (e *StaticExecutor) Close() error { return nil }

// NewExecutor creates a postgres-backed executor when configured, otherwise a
// static empty one so the service can run without a receipts database.
func NewExecutor(ctx context.Context, databaseURL string) (Executor, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewStaticExecutor(nil), nil
	}
	return NewPostgresExecutor(ctx, databaseURL)
}
