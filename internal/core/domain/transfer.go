package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransferStatus represents the persisted outcome of a transfer attempt.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusFailed    TransferStatus = "FAILED"
)

// Transfer is the observable record of a value transfer. Amount and parties
// are intentionally public; balances are not.
type Transfer struct {
	ID          uuid.UUID      `json:"id"`
	FromUserID  uuid.UUID      `json:"from_user_id"`
	ToUserID    uuid.UUID      `json:"to_user_id"`
	FromAddress string         `json:"from_address"`
	ToAddress   string         `json:"to_address"`
	Amount      string         `json:"amount"` // plaintext decimal
	Status      TransferStatus `json:"status"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IsTerminal returns true if the transfer reached a final state.
func (t *Transfer) IsTerminal() bool {
	return t.Status == TransferStatusCompleted || t.Status == TransferStatusFailed
}

// TransferState tracks a single transfer attempt through its mandatory
// sequence. PIN verification must precede proof generation because the proof
// is generated over the authenticated user's own decrypted balance.
type TransferState string

const (
	StateInitiated       TransferState = "INITIATED"
	StatePINVerified     TransferState = "PIN_VERIFIED"
	StateProofGenerated  TransferState = "PROOF_GENERATED"
	StateProofVerified   TransferState = "PROOF_VERIFIED"
	StateLedgerCommitted TransferState = "LEDGER_COMMITTED"
	StateFailed          TransferState = "FAILED"
)

// next maps each state to its single legal successor.
var next = map[TransferState]TransferState{
	StateInitiated:      StatePINVerified,
	StatePINVerified:    StateProofGenerated,
	StateProofGenerated: StateProofVerified,
	StateProofVerified:  StateLedgerCommitted,
}

// IsTerminal returns true for LEDGER_COMMITTED and FAILED.
func (s TransferState) IsTerminal() bool {
	return s == StateLedgerCommitted || s == StateFailed
}

// CanTransitionTo returns true if target is the legal successor of s, or if
// target is FAILED and s is not already terminal. No step may be skipped.
func (s TransferState) CanTransitionTo(target TransferState) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StateFailed {
		return true
	}
	return next[s] == target
}
