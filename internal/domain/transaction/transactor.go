package transaction

import "context"

// Transactor runs fn in a single unit of work. Repository calls made with the
// ctx passed to fn join the transaction; any error returned by fn rolls back
// every write made inside it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
