package service

import (
	"context"
	"fmt"
	"time"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/pkg/apperror"
	"zkledger/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferServiceImpl sequences a private transfer end to end: recipient
// resolution, soft sufficiency check, PIN re-authentication, proof
// generation and verification, and the atomic ledger commit. There is one
// code path; no step can be skipped or reordered.
type TransferServiceImpl struct {
	accountRepo  ports.AccountRepository
	balanceRepo  ports.BalanceRepository
	transferRepo ports.TransferRepository
	transactor   ports.DBTransactor
	encryption   ports.EncryptionService
	ledger       ports.LedgerService
	proofs       ports.ProofService
	log          zerolog.Logger
}

// NewTransferService creates the transfer coordinator.
func NewTransferService(
	accountRepo ports.AccountRepository,
	balanceRepo ports.BalanceRepository,
	transferRepo ports.TransferRepository,
	transactor ports.DBTransactor,
	encryption ports.EncryptionService,
	ledger ports.LedgerService,
	proofs ports.ProofService,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		accountRepo:  accountRepo,
		balanceRepo:  balanceRepo,
		transferRepo: transferRepo,
		transactor:   transactor,
		encryption:   encryption,
		ledger:       ledger,
		proofs:       proofs,
		log:          log.With().Str("component", "transfer_service").Logger(),
	}
}

// Execute runs the transfer state machine. Failures before PIN verification
// leave no trace; failures after it record a FAILED transfer, and in either
// case no balance is mutated.
func (s *TransferServiceImpl) Execute(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	amount, err := money.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}
	if amount.Sign() <= 0 {
		return nil, apperror.ErrInvalidAmount("Transfer amount must be positive")
	}

	sender, err := s.accountRepo.GetByID(ctx, req.FromUserID)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("loading sender: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if !sender.IsActive() {
		return nil, apperror.ErrInactiveAccount()
	}

	recipient, err := s.accountRepo.GetByAddress(ctx, req.RecipientAddress)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("resolving recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrRecipientNotFound()
	}
	if !recipient.IsActive() {
		return nil, apperror.ErrInactiveAccount()
	}
	if recipient.ID == sender.ID {
		return nil, apperror.Validation("Cannot transfer to own account")
	}

	state := domain.StateInitiated

	// Soft sufficiency check before asking for the PIN; the definitive check
	// happens again under the row lock at commit time.
	sufficiency, err := s.ledger.CheckSufficiency(ctx, sender.ID, req.Amount)
	if err != nil {
		return nil, err
	}
	if !sufficiency.Sufficient {
		return nil, apperror.ErrInsufficientBalance()
	}

	if err := s.ledger.VerifyPIN(ctx, sender.ID, req.PIN); err != nil {
		return nil, err
	}
	state = s.advance(state, domain.StatePINVerified)

	// Witness material: the coordinator is the only caller that hands
	// private balance state to the prover.
	balance, err := s.balanceRepo.GetByUserID(ctx, sender.ID)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, apperror.ErrPersistence(fmt.Errorf("loading sender balance: %w", err)))
	}
	if balance == nil {
		return nil, s.fail(ctx, state, sender, recipient, req, apperror.ErrBalanceUnavailable(fmt.Errorf("no balance record for sender %s", sender.ID)))
	}
	plaintext, err := s.encryption.Decrypt(balance.EncryptedBalance)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, apperror.ErrBalanceUnavailable(fmt.Errorf("decrypting sender balance: %w", err)))
	}
	balanceMinor, err := money.ToMinorUnits(plaintext)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, apperror.ErrBalanceUnavailable(fmt.Errorf("parsing sender balance: %w", err)))
	}

	input, err := s.proofs.BuildProofInput(balanceMinor, amount, balance.Nonce, balance.Salt)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, err)
	}

	proof, err := s.proofs.GenerateProof(ctx, input)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, err)
	}
	state = s.advance(state, domain.StateProofGenerated)

	verification, err := s.proofs.VerifyProof(ctx, proof, input)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, err)
	}
	if !verification.IsValid {
		return nil, s.fail(ctx, state, sender, recipient, req, apperror.ErrProofRejected())
	}
	state = s.advance(state, domain.StateProofVerified)

	canonical, err := money.FromMinorUnits(amount)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, apperror.InternalError(fmt.Errorf("formatting amount: %w", err)))
	}
	transfer := &domain.Transfer{
		ID:          uuid.New(),
		FromUserID:  sender.ID,
		ToUserID:    recipient.ID,
		FromAddress: sender.Address,
		ToAddress:   recipient.Address,
		Amount:      canonical,
		Status:      domain.TransferStatusPending,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}

	result, err := s.ledger.Transfer(ctx, transfer, proof)
	if err != nil {
		return nil, s.fail(ctx, state, sender, recipient, req, err)
	}
	state = s.advance(state, domain.StateLedgerCommitted)

	s.log.Info().
		Str("transfer_id", transfer.ID.String()).
		Str("state", string(state)).
		Str("new_from_commitment", result.NewFromCommitment).
		Int64("verification_ms", proof.VerificationTimeMs).
		Msg("transfer completed")

	return &ports.TransferResult{Transfer: transfer, Proof: proof}, nil
}

// History returns the user's transfer records, newest first.
func (s *TransferServiceImpl) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transfer, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	transfers, err := s.transferRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("listing transfers: %w", err))
	}
	return transfers, nil
}

// advance moves the state machine forward, treating an illegal transition
// as a programming error worth a loud log rather than a panic.
func (s *TransferServiceImpl) advance(from, to domain.TransferState) domain.TransferState {
	if !from.CanTransitionTo(to) {
		s.log.Error().
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("illegal transfer state transition")
		return from
	}
	return to
}

// fail records a FAILED transfer for attempts that got past PIN
// verification. The record is best effort; the original error always wins.
func (s *TransferServiceImpl) fail(ctx context.Context, state domain.TransferState, sender, recipient *domain.Account, req ports.TransferRequest, cause error) error {
	s.advance(state, domain.StateFailed)

	canonical := req.Amount
	if minor, err := money.ToMinorUnits(req.Amount); err == nil {
		if c, err := money.FromMinorUnits(minor); err == nil {
			canonical = c
		}
	}

	record := &domain.Transfer{
		ID:          uuid.New(),
		FromUserID:  sender.ID,
		ToUserID:    recipient.ID,
		FromAddress: sender.Address,
		ToAddress:   recipient.Address,
		Amount:      canonical,
		Status:      domain.TransferStatusFailed,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("recording failed transfer: begin")
		return cause
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.transferRepo.Create(ctx, dbTx, record); err != nil {
		s.log.Warn().Err(err).Msg("recording failed transfer")
		return cause
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.log.Warn().Err(err).Msg("recording failed transfer: commit")
	}
	return cause
}
