package domain

import (
	"time"

	"github.com/google/uuid"
)

// Public signal positions. The ordering is fixed by the prover contract and
// must never change: persisted proofs are interpreted by index.
const (
	SignalAmount        = 0
	SignalCommitment    = 1
	SignalNullifier     = 2
	SignalValidity      = 3
	SignalNewCommitment = 4

	SignalCount = 5
)

// ValiditySignalOK is the value the circuit emits when all constraints held.
const ValiditySignalOK = "1"

// Proof is the immutable record of a proof that reached verification,
// linked to its transfer attempt.
type Proof struct {
	ID                 uuid.UUID `json:"id"`
	TransferID         uuid.UUID `json:"transfer_id"`
	ProofData          string    `json:"proof_data"` // opaque serialized proof
	PublicSignals      []string  `json:"public_signals"`
	VerificationTimeMs int64     `json:"verification_time_ms"`
	CreatedAt          time.Time `json:"created_at"`
}
