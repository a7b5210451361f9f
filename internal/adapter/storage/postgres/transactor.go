package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out the transactions that bracket every balance
// mutation: the ledger opens one per transfer, deposit or registration and
// holds its row locks until commit. Repositories receive the pgx.Tx
// explicitly rather than pulling it from context, so a write outside a
// transaction block does not compile.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction. The caller owns Commit and Rollback.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
