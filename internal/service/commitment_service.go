package service

import (
	"fmt"
	"math/big"

	"zkledger/internal/zk"

	"github.com/google/uuid"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// MiMCCommitmentEngine implements ports.CommitmentEngine over the BN254
// scalar field. Commitments and nullifiers use the same MiMC the
// sufficiency circuit constrains, so on-ledger values verify against
// circuit outputs with no re-encoding. Addresses use Poseidon so the
// public address space is disjoint from the commitment space.
type MiMCCommitmentEngine struct{}

// NewMiMCCommitmentEngine creates a stateless commitment engine.
func NewMiMCCommitmentEngine() *MiMCCommitmentEngine {
	return &MiMCCommitmentEngine{}
}

// Commit computes H(balance, nonce, salt) as a decimal field element.
func (e *MiMCCommitmentEngine) Commit(balance *big.Int, nonce int64, salt string) (string, error) {
	saltEl, err := zk.ParseFieldElement(salt)
	if err != nil {
		return "", fmt.Errorf("parsing salt: %w", err)
	}
	if nonce < 0 {
		return "", fmt.Errorf("nonce must be non-negative")
	}
	h, err := zk.CommitmentHash(balance, big.NewInt(nonce), saltEl)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

// Nullifier computes H(balance, salt).
func (e *MiMCCommitmentEngine) Nullifier(balance *big.Int, salt string) (string, error) {
	saltEl, err := zk.ParseFieldElement(salt)
	if err != nil {
		return "", fmt.Errorf("parsing salt: %w", err)
	}
	h, err := zk.NullifierHash(balance, saltEl)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

// Advance computes the commitment for the state after a mutation:
// Commit(newBalance, nonce+1, salt).
func (e *MiMCCommitmentEngine) Advance(newBalance *big.Int, nonce int64, salt string) (string, error) {
	return e.Commit(newBalance, nonce+1, salt)
}

// NewSalt draws a fresh random field element.
func (e *MiMCCommitmentEngine) NewSalt() (string, error) {
	return zk.RandomFieldElement()
}

// Address derives the public transfer address from the user ID:
// "0x" + 64 hex chars of Poseidon(userID).
func (e *MiMCCommitmentEngine) Address(userID uuid.UUID) (string, error) {
	h, err := poseidon.Hash([]*big.Int{new(big.Int).SetBytes(userID[:])})
	if err != nil {
		return "", fmt.Errorf("deriving address: %w", err)
	}
	return fmt.Sprintf("0x%064x", h), nil
}
