package ports

import (
	"context"

	"zkledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
// Create runs inside the registration transaction so that an account row
// never outlives a failed balance seed.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByAddress(ctx context.Context, address string) (*domain.Account, error)
}

// BalanceRepository defines persistence operations for encrypted-balance
// records. Methods accepting pgx.Tx run inside transaction blocks for
// pessimistic row locking; balance mutations are only legal through them.
type BalanceRepository interface {
	Create(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Balance, error)
	// Update persists a new encrypted balance, commitment and nonce in one
	// statement. MUST be called within a transaction.
	Update(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error
}

// TransferRepository defines persistence operations for transfer records.
type TransferRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transfer, error)
}

// ProofRepository defines persistence for proof records. Append-only.
type ProofRepository interface {
	Create(ctx context.Context, tx pgx.Tx, proof *domain.Proof) error
	GetByTransferID(ctx context.Context, transferID uuid.UUID) (*domain.Proof, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
