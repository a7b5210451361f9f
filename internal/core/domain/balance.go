package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balance is the authoritative encrypted-balance record, one per user.
// The plaintext balance exists only transiently inside the ledger service.
//
// Invariant after every mutation:
//
//	Commitment == Commit(decrypt(EncryptedBalance), Nonce, Salt)
//
// Nonce starts at 0 and advances by exactly 1 on every state-changing
// operation. Salt is fixed at account creation and never rotates. Records
// are never deleted.
type Balance struct {
	UserID           uuid.UUID `json:"user_id"`
	EncryptedBalance string    `json:"-"` // AES-256-GCM, IV-prefixed, never expose
	Commitment       string    `json:"commitment"`
	Nonce            int64     `json:"nonce"`
	Salt             string    `json:"-"`
	LastUpdated      time.Time `json:"last_updated"`
}
