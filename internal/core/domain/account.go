package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

// Account represents a registered user. The address is a public,
// Poseidon-derived identifier used as the transfer endpoint; balances are
// never part of this record.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"` // Argon2id
	PINHash      string        `json:"-"` // Argon2id, re-auth secret
	Address      string        `json:"address"`
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsActive returns true if the account may send and receive transfers.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
