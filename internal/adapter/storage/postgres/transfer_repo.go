package postgres

import (
	"context"
	"errors"
	"fmt"

	"zkledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

const transferColumns = `id, from_user_id, to_user_id, from_address, to_address, amount, status, description, created_at`

// Create inserts a transfer record within a transaction.
func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	query := `INSERT INTO transfers (id, from_user_id, to_user_id, from_address, to_address, amount, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.FromUserID, t.ToUserID, t.FromAddress, t.ToAddress,
		t.Amount, t.Status, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID fetches a transfer record.
func (r *TransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`

	t := &domain.Transfer{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.FromUserID, &t.ToUserID, &t.FromAddress, &t.ToAddress,
		&t.Amount, &t.Status, &t.Description, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer by id: %w", err)
	}
	return t, nil
}

// ListByUser returns transfers involving the user, newest first.
func (r *TransferRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(
			&t.ID, &t.FromUserID, &t.ToUserID, &t.FromAddress, &t.ToAddress,
			&t.Amount, &t.Status, &t.Description, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return transfers, nil
}
