package ports

import (
	"context"
	"math/big"
	"time"

	"zkledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EncryptionService handles AES-256-GCM encryption/decryption of balance
// plaintext. Decrypt failures mean "balance unknown", never "balance zero".
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HashService handles Argon2id hashing for passwords and PINs.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles JWT token operations for the authentication
// collaborator: a credential resolves to a stable user identifier.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (uuid.UUID, error)
}

// CommitmentEngine derives balance commitments and spend nullifiers.
// Stateless; a single instance is constructed at process start and injected.
// Balances are in minor units; outputs are decimal field-element strings.
type CommitmentEngine interface {
	// Commit binds (balance, nonce, salt) one-way. Changing any component
	// changes the result with overwhelming probability.
	Commit(balance *big.Int, nonce int64, salt string) (string, error)
	// Nullifier binds (balance, salt), deliberately excluding the nonce:
	// it identifies the exact balance value being spent from.
	Nullifier(balance *big.Int, salt string) (string, error)
	// Advance computes the next state's binding: Commit(newBalance, nonce+1, salt).
	Advance(newBalance *big.Int, nonce int64, salt string) (string, error)
	// NewSalt generates a fresh per-account salt, fixed for the account's life.
	NewSalt() (string, error)
	// Address derives the public transfer address for a user.
	Address(userID uuid.UUID) (string, error)
}

// ProofInput carries the witness material for a sufficiency proof.
// Balance, Nonce and Salt are private; TransferAmount is public.
type ProofInput struct {
	Balance        *big.Int
	TransferAmount *big.Int
	Nonce          int64
	Salt           string
}

// ZKProof is an opaque serialized proof plus its ordered public signals:
// [transferAmount, balanceCommitment, nullifierHash, validityFlag, newBalanceCommitment].
type ZKProof struct {
	ProofData     string
	PublicSignals []string
}

// Prover is the external prover/verifier collaborator. Implementations are
// treated as opaque; the orchestrator interprets the public signals.
type Prover interface {
	Prove(ctx context.Context, input *ProofInput) (*ZKProof, error)
	Verify(ctx context.Context, proofData string, publicSignals []string) (bool, error)
}

// VerificationResult is the orchestrator's interpretation of a verified proof.
type VerificationResult struct {
	IsValid              bool
	TransferAmount       string
	BalanceCommitment    string
	NullifierHash        string
	NewBalanceCommitment string
	VerificationTimeMs   int64
}

// ProofService orchestrates proof construction and verification.
type ProofService interface {
	// BuildProofInput fails fast with InsufficientBalanceError when
	// balance < amount; the prover is never asked to attempt an
	// unsatisfiable circuit.
	BuildProofInput(balance, transferAmount *big.Int, nonce int64, salt string) (*ProofInput, error)
	// GenerateProof delegates to the prover and rejects any proof whose
	// validity flag is not "1", even on prover success.
	GenerateProof(ctx context.Context, input *ProofInput) (*domain.Proof, error)
	// VerifyProof accepts a proof only if the external verifier passes,
	// the validity flag is "1", and every public signal matches the values
	// recomputed from input (signal-substitution defense).
	VerifyProof(ctx context.Context, proof *domain.Proof, input *ProofInput) (*VerificationResult, error)
}

// SufficiencyResult is the sender's own pre-transfer check outcome.
// Never exposed to counterparties.
type SufficiencyResult struct {
	Sufficient     bool
	CurrentBalance string
}

// LedgerTransferResult holds both parties' advanced commitments.
type LedgerTransferResult struct {
	NewFromCommitment string
	NewToCommitment   string
}

// LedgerService owns all BalanceRecord mutations.
type LedgerService interface {
	// VerifyPIN re-authenticates a user. Failed attempts count against a
	// per-user window; a saturated window denies regardless of correctness.
	VerifyPIN(ctx context.Context, userID uuid.UUID, pin string) error
	// Read returns the decimal balance after PIN re-authentication.
	Read(ctx context.Context, userID uuid.UUID, pin string) (string, error)
	CheckSufficiency(ctx context.Context, userID uuid.UUID, amount string) (*SufficiencyResult, error)
	// Transfer atomically debits the sender and credits the recipient,
	// persisting both balances, the transfer record and the proof record in
	// one durable transaction. The proof's balance commitment must still
	// match the sender's stored commitment at commit time.
	Transfer(ctx context.Context, transfer *domain.Transfer, proof *domain.Proof) (*LedgerTransferResult, error)
	// Deposit credits a single account with the same atomicity guarantees.
	Deposit(ctx context.Context, userID uuid.UUID, amount string) (string, error)
	// Initialize creates a user's balance record with the configured seed
	// balance, fresh salt and nonce 0. Runs inside the caller's transaction,
	// alongside the account row it seeds. Explicit bootstrap path only.
	Initialize(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Balance, error)
}

// TransferRequest holds validated input for a transfer.
type TransferRequest struct {
	FromUserID       uuid.UUID
	RecipientAddress string
	Amount           string
	PIN              string
	Description      string
}

// TransferResult is the coordinator's outcome: the persisted transfer and
// its proof record.
type TransferResult struct {
	Transfer *domain.Transfer
	Proof    *domain.Proof
}

// TransferService sequences PIN re-authentication, proof generation and
// verification, and the ledger mutation. One code path.
type TransferService interface {
	Execute(ctx context.Context, req TransferRequest) (*TransferResult, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transfer, error)
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username string
	Password string
	PIN      string
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	UserID     uuid.UUID
	Address    string
	Commitment string
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// AttemptLimiter tracks failed PIN attempts per key over a fixed window.
// Counters survive process restarts (backed by shared storage), so the
// window cannot be bypassed by restarting within it.
type AttemptLimiter interface {
	// Blocked reports whether the key's window is saturated.
	Blocked(ctx context.Context, key string) (bool, error)
	// RecordFailure increments the key's window counter.
	RecordFailure(ctx context.Context, key string) error
}
