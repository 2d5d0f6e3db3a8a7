package shared

import "context"

// Transactor runs a function within a storage transaction. The transaction
// handle travels through the context, so repositories called inside fn
// participate in the same transaction without knowing its concrete type.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactor executes fn directly without any transaction. Useful for
// in-memory implementations and tests.
type NopTransactor struct{}

// WithinTransaction runs fn with the unchanged context.
func (NopTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
