package postgres

import (
	"context"
	"errors"
	"fmt"

	"zkledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, username, password_hash, pin_hash, address, status, created_at, updated_at`

// Create inserts a new account. MUST be called within a transaction; the
// balance seed commits or rolls back together with the account row.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (id, username, password_hash, pin_hash, address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.PINHash,
		a.Address, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get account by id")
}

// GetByUsername fetches an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, username), "get account by username")
}

// GetByAddress fetches an account by its public transfer address.
func (r *AccountRepo) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, address), "get account by address")
}

func (r *AccountRepo) scanOne(row pgx.Row, op string) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.PINHash,
		&a.Address, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}
