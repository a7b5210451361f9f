package postgres

import (
	"context"
	"errors"
	"fmt"

	"zkledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository. Plaintext never reaches
// this layer; rows carry ciphertext, commitment, nonce and salt only.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

const balanceColumns = `user_id, encrypted_balance, commitment, nonce, salt, last_updated`

// Create inserts a new balance record. MUST be called within the
// registration transaction.
func (r *BalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	query := `INSERT INTO balances (user_id, encrypted_balance, commitment, nonce, salt, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		b.UserID, b.EncryptedBalance, b.Commitment, b.Nonce, b.Salt, b.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

// GetByUserID fetches a balance record without locking.
func (r *BalanceRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE user_id = $1`
	return scanBalance(r.pool.QueryRow(ctx, query, userID), "get balance by user id")
}

// GetByUserIDForUpdate fetches a balance record with pessimistic locking.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE user_id = $1 FOR UPDATE`
	return scanBalance(tx.QueryRow(ctx, query, userID), "get balance for update")
}

// Update persists a mutated balance: new ciphertext, commitment and nonce in
// one statement. The nonce predicate guards against lost updates; with row
// locking it should never miss, so a zero row count is a hard error.
func (r *BalanceRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	query := `UPDATE balances
		SET encrypted_balance = $1, commitment = $2, nonce = $3, last_updated = $4
		WHERE user_id = $5 AND nonce = $6`

	tag, err := tx.Exec(ctx, query,
		b.EncryptedBalance, b.Commitment, b.Nonce, b.LastUpdated,
		b.UserID, b.Nonce-1,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance row moved under update: user %s nonce %d", b.UserID, b.Nonce-1)
	}
	return nil
}

func scanBalance(row pgx.Row, op string) (*domain.Balance, error) {
	b := &domain.Balance{}
	err := row.Scan(
		&b.UserID, &b.EncryptedBalance, &b.Commitment, &b.Nonce, &b.Salt, &b.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
