package postgres

import (
	"context"
	"errors"
	"fmt"

	"zkledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProofRepo implements ports.ProofRepository. Append-only: proof records
// are evidence and are never updated or deleted.
type ProofRepo struct {
	pool Pool
}

// NewProofRepo creates a new ProofRepo.
func NewProofRepo(pool Pool) *ProofRepo {
	return &ProofRepo{pool: pool}
}

// Create inserts a proof record within a transaction.
func (r *ProofRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Proof) error {
	query := `INSERT INTO zk_proofs (id, transfer_id, proof_data, public_signals, verification_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.TransferID, p.ProofData, p.PublicSignals,
		p.VerificationTimeMs, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert proof: %w", err)
	}
	return nil
}

// GetByTransferID fetches the proof persisted with a transfer.
func (r *ProofRepo) GetByTransferID(ctx context.Context, transferID uuid.UUID) (*domain.Proof, error) {
	query := `SELECT id, transfer_id, proof_data, public_signals, verification_time_ms, created_at
		FROM zk_proofs WHERE transfer_id = $1`

	p := &domain.Proof{}
	err := r.pool.QueryRow(ctx, query, transferID).Scan(
		&p.ID, &p.TransferID, &p.ProofData, &p.PublicSignals,
		&p.VerificationTimeMs, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proof by transfer id: %w", err)
	}
	return p, nil
}
