package service

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/pkg/apperror"
	"zkledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl owns every balance mutation. Plaintext balances exist
// only inside its method scopes; everything that persists is ciphertext
// plus commitment material.
type LedgerServiceImpl struct {
	accountRepo  ports.AccountRepository
	balanceRepo  ports.BalanceRepository
	transferRepo ports.TransferRepository
	proofRepo    ports.ProofRepository
	transactor   ports.DBTransactor
	encryption   ports.EncryptionService
	hasher       ports.HashService
	engine       ports.CommitmentEngine
	limiter      ports.AttemptLimiter
	seedBalance  string
	log          zerolog.Logger
}

// NewLedgerService creates the ledger service. seedBalance is the decimal
// balance granted to new accounts at creation, the only unchecked credit
// path in the system.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	balanceRepo ports.BalanceRepository,
	transferRepo ports.TransferRepository,
	proofRepo ports.ProofRepository,
	transactor ports.DBTransactor,
	encryption ports.EncryptionService,
	hasher ports.HashService,
	engine ports.CommitmentEngine,
	limiter ports.AttemptLimiter,
	seedBalance string,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo:  accountRepo,
		balanceRepo:  balanceRepo,
		transferRepo: transferRepo,
		proofRepo:    proofRepo,
		transactor:   transactor,
		encryption:   encryption,
		hasher:       hasher,
		engine:       engine,
		limiter:      limiter,
		seedBalance:  seedBalance,
		log:          log.With().Str("component", "ledger_service").Logger(),
	}
}

// VerifyPIN re-authenticates a user by PIN. A saturated failure window
// denies before the PIN is even checked, and the denial is the same
// generic error as a wrong PIN.
func (s *LedgerServiceImpl) VerifyPIN(ctx context.Context, userID uuid.UUID, pin string) error {
	key := userID.String()

	blocked, err := s.limiter.Blocked(ctx, key)
	if err != nil {
		// Counter store outage: fail closed. An attacker must not be able
		// to convert a redis outage into unlimited PIN attempts.
		s.log.Error().Err(err).Msg("PIN attempt limiter unavailable")
		return apperror.ErrAuthorizationDenied()
	}
	if blocked {
		return apperror.ErrAuthorizationDenied()
	}

	account, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return apperror.ErrPersistence(fmt.Errorf("loading account: %w", err))
	}
	if account == nil || !account.IsActive() {
		return apperror.ErrAuthorizationDenied()
	}

	ok, err := s.hasher.Verify(pin, account.PINHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verifying PIN: %w", err))
	}
	if !ok {
		if recErr := s.limiter.RecordFailure(ctx, key); recErr != nil {
			s.log.Error().Err(recErr).Msg("recording PIN failure")
		}
		return apperror.ErrAuthorizationDenied()
	}
	return nil
}

// Read returns the caller's decrypted decimal balance after PIN
// re-authentication. Decrypt failure is an error, never a zero balance.
func (s *LedgerServiceImpl) Read(ctx context.Context, userID uuid.UUID, pin string) (string, error) {
	if err := s.VerifyPIN(ctx, userID, pin); err != nil {
		return "", err
	}

	balance, err := s.balanceRepo.GetByUserID(ctx, userID)
	if err != nil {
		return "", apperror.ErrPersistence(fmt.Errorf("loading balance: %w", err))
	}
	if balance == nil {
		return "", apperror.ErrBalanceUnavailable(fmt.Errorf("no balance record for user %s", userID))
	}

	plaintext, err := s.encryption.Decrypt(balance.EncryptedBalance)
	if err != nil {
		return "", apperror.ErrBalanceUnavailable(fmt.Errorf("decrypting balance: %w", err))
	}
	return plaintext, nil
}

// CheckSufficiency is the sender's own pre-transfer check; the result is
// never exposed to counterparties.
func (s *LedgerServiceImpl) CheckSufficiency(ctx context.Context, userID uuid.UUID, amount string) (*ports.SufficiencyResult, error) {
	if _, err := money.ToMinorUnits(amount); err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}

	balance, err := s.balanceRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("loading balance: %w", err))
	}
	if balance == nil {
		return nil, apperror.ErrBalanceUnavailable(fmt.Errorf("no balance record for user %s", userID))
	}

	plaintext, err := s.encryption.Decrypt(balance.EncryptedBalance)
	if err != nil {
		return nil, apperror.ErrBalanceUnavailable(fmt.Errorf("decrypting balance: %w", err))
	}

	cmp, err := money.Cmp(plaintext, amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("comparing amounts: %w", err))
	}
	return &ports.SufficiencyResult{
		Sufficient:     cmp >= 0,
		CurrentBalance: plaintext,
	}, nil
}

// Transfer debits the sender and credits the recipient atomically. Both
// balance rows are locked in deterministic ID order, the proof is re-bound
// to the sender's current commitment under the lock, and both new states,
// the transfer record and the proof record commit in one transaction or
// not at all.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, transfer *domain.Transfer, proof *domain.Proof) (*ports.LedgerTransferResult, error) {
	amount, err := money.ToMinorUnits(transfer.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}
	if amount.Sign() <= 0 {
		return nil, apperror.ErrInvalidAmount("Transfer amount must be positive")
	}
	if transfer.FromUserID == transfer.ToUserID {
		return nil, apperror.Validation("Cannot transfer to own account")
	}
	if len(proof.PublicSignals) != domain.SignalCount {
		return nil, apperror.ErrProofRejected()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("beginning transaction: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock order is by user ID bytes so two opposing transfers cannot
	// deadlock each other.
	first, second := transfer.FromUserID, transfer.ToUserID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	locked := make(map[uuid.UUID]*domain.Balance, 2)
	for _, id := range []uuid.UUID{first, second} {
		b, err := s.balanceRepo.GetByUserIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, apperror.ErrPersistence(fmt.Errorf("locking balance row: %w", err))
		}
		locked[id] = b
	}

	fromBalance := locked[transfer.FromUserID]
	toBalance := locked[transfer.ToUserID]
	if fromBalance == nil {
		return nil, apperror.ErrBalanceUnavailable(fmt.Errorf("no balance record for sender %s", transfer.FromUserID))
	}
	if toBalance == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	fromPlain, err := s.decryptMinor(fromBalance.EncryptedBalance)
	if err != nil {
		return nil, err
	}
	toPlain, err := s.decryptMinor(toBalance.EncryptedBalance)
	if err != nil {
		return nil, err
	}

	// Sufficiency is re-checked against the stored plaintext before the
	// proof is examined: a sender drained by a concurrent transfer gets an
	// insufficient-balance answer, not a proof error.
	if fromPlain.Cmp(amount) < 0 {
		return nil, apperror.ErrInsufficientBalance()
	}

	// Freshness check under the lock: the proof must open against the
	// sender's commitment as stored right now. A proof generated against an
	// earlier state (already-spent balance, replayed nullifier) fails here.
	if proof.PublicSignals[domain.SignalCommitment] != fromBalance.Commitment {
		s.log.Warn().
			Str("transfer_id", transfer.ID.String()).
			Msg("proof bound to stale balance commitment")
		return nil, apperror.ErrProofRejected()
	}
	if proof.PublicSignals[domain.SignalAmount] != amount.String() {
		return nil, apperror.ErrSignalMismatch()
	}

	newFrom := new(big.Int).Sub(fromPlain, amount)
	newTo := new(big.Int).Add(toPlain, amount)

	newFromCommitment, err := s.engine.Advance(newFrom, fromBalance.Nonce, fromBalance.Salt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("advancing sender commitment: %w", err))
	}
	// The proof's fifth signal promised this exact next state.
	if proof.PublicSignals[domain.SignalNewCommitment] != newFromCommitment {
		return nil, apperror.ErrSignalMismatch()
	}
	newToCommitment, err := s.engine.Advance(newTo, toBalance.Nonce, toBalance.Salt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("advancing recipient commitment: %w", err))
	}

	now := time.Now()
	if err := s.writeBalance(ctx, dbTx, fromBalance, newFrom, newFromCommitment, now); err != nil {
		return nil, err
	}
	if err := s.writeBalance(ctx, dbTx, toBalance, newTo, newToCommitment, now); err != nil {
		return nil, err
	}

	transfer.Status = domain.TransferStatusCompleted
	if err := s.transferRepo.Create(ctx, dbTx, transfer); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("persisting transfer: %w", err))
	}

	proof.TransferID = transfer.ID
	if err := s.proofRepo.Create(ctx, dbTx, proof); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("persisting proof: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("committing transfer: %w", err))
	}

	s.log.Info().
		Str("transfer_id", transfer.ID.String()).
		Str("from_commitment", newFromCommitment).
		Str("to_commitment", newToCommitment).
		Msg("transfer committed")

	return &ports.LedgerTransferResult{
		NewFromCommitment: newFromCommitment,
		NewToCommitment:   newToCommitment,
	}, nil
}

// Deposit credits a single account. Same locking and state advancement as
// a transfer, minus the counterparty and the proof.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, amount string) (string, error) {
	minor, err := money.ToMinorUnits(amount)
	if err != nil {
		return "", apperror.ErrInvalidAmount(err.Error())
	}
	if minor.Sign() <= 0 {
		return "", apperror.ErrInvalidAmount("Deposit amount must be positive")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return "", apperror.ErrPersistence(fmt.Errorf("beginning transaction: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	balance, err := s.balanceRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return "", apperror.ErrPersistence(fmt.Errorf("locking balance row: %w", err))
	}
	if balance == nil {
		return "", apperror.ErrBalanceUnavailable(fmt.Errorf("no balance record for user %s", userID))
	}

	current, err := s.decryptMinor(balance.EncryptedBalance)
	if err != nil {
		return "", err
	}

	updated := new(big.Int).Add(current, minor)
	newCommitment, err := s.engine.Advance(updated, balance.Nonce, balance.Salt)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("advancing commitment: %w", err))
	}

	if err := s.writeBalance(ctx, dbTx, balance, updated, newCommitment, time.Now()); err != nil {
		return "", err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return "", apperror.ErrPersistence(fmt.Errorf("committing deposit: %w", err))
	}

	return newCommitment, nil
}

// Initialize creates the balance record for a new account: seed balance,
// fresh salt, nonce 0. The only path that creates balance state. Runs in
// the caller's transaction so the seed and the account commit together.
func (s *LedgerServiceImpl) Initialize(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*domain.Balance, error) {
	seed, err := money.ToMinorUnits(s.seedBalance)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("parsing seed balance: %w", err))
	}
	canonical, err := money.FromMinorUnits(seed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("formatting seed balance: %w", err))
	}

	salt, err := s.engine.NewSalt()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generating salt: %w", err))
	}
	commitment, err := s.engine.Commit(seed, 0, salt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("computing commitment: %w", err))
	}
	encrypted, err := s.encryption.Encrypt(canonical)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypting balance: %w", err))
	}

	balance := &domain.Balance{
		UserID:           userID,
		EncryptedBalance: encrypted,
		Commitment:       commitment,
		Nonce:            0,
		Salt:             salt,
		LastUpdated:      time.Now(),
	}
	if err := s.balanceRepo.Create(ctx, dbTx, balance); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("creating balance record: %w", err))
	}
	return balance, nil
}

// decryptMinor decrypts a stored balance and parses it to minor units.
func (s *LedgerServiceImpl) decryptMinor(ciphertext string) (*big.Int, error) {
	plaintext, err := s.encryption.Decrypt(ciphertext)
	if err != nil {
		return nil, apperror.ErrBalanceUnavailable(fmt.Errorf("decrypting balance: %w", err))
	}
	minor, err := money.ToMinorUnits(plaintext)
	if err != nil {
		return nil, apperror.ErrBalanceUnavailable(fmt.Errorf("parsing stored balance: %w", err))
	}
	return minor, nil
}

// writeBalance re-encrypts and persists a mutated balance with its advanced
// nonce and commitment. Must run inside the caller's transaction.
func (s *LedgerServiceImpl) writeBalance(ctx context.Context, dbTx pgx.Tx, balance *domain.Balance, newValue *big.Int, newCommitment string, now time.Time) error {
	canonical, err := money.FromMinorUnits(newValue)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("formatting balance: %w", err))
	}
	encrypted, err := s.encryption.Encrypt(canonical)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("encrypting balance: %w", err))
	}

	balance.EncryptedBalance = encrypted
	balance.Commitment = newCommitment
	balance.Nonce++
	balance.LastUpdated = now

	if err := s.balanceRepo.Update(ctx, dbTx, balance); err != nil {
		return apperror.ErrPersistence(fmt.Errorf("updating balance: %w", err))
	}
	return nil
}
