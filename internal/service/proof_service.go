package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProofServiceImpl orchestrates sufficiency-proof generation and
// verification against an opaque prover. It owns every trust decision:
// signal count, validity flag, and the recomputation of each signal from
// request context so a substituted signal set is caught even when the
// underlying proof verifies.
type ProofServiceImpl struct {
	prover  ports.Prover
	engine  ports.CommitmentEngine
	timeout time.Duration
	log     zerolog.Logger
}

// NewProofService creates the proof orchestrator. timeout bounds a single
// proof generation; zero disables the bound.
func NewProofService(prover ports.Prover, engine ports.CommitmentEngine, timeout time.Duration, log zerolog.Logger) *ProofServiceImpl {
	return &ProofServiceImpl{
		prover:  prover,
		engine:  engine,
		timeout: timeout,
		log:     log.With().Str("component", "proof_service").Logger(),
	}
}

// BuildProofInput assembles witness material, refusing an unsatisfiable
// circuit up front: the prover is never asked to prove balance < amount.
func (s *ProofServiceImpl) BuildProofInput(balance, transferAmount *big.Int, nonce int64, salt string) (*ports.ProofInput, error) {
	if balance == nil || transferAmount == nil {
		return nil, apperror.InternalError(fmt.Errorf("missing proof input material"))
	}
	if transferAmount.Sign() <= 0 {
		return nil, apperror.ErrInvalidAmount("Transfer amount must be positive")
	}
	if balance.Cmp(transferAmount) < 0 {
		return nil, apperror.ErrInsufficientBalance()
	}
	return &ports.ProofInput{
		Balance:        balance,
		TransferAmount: transferAmount,
		Nonce:          nonce,
		Salt:           salt,
	}, nil
}

// GenerateProof runs the prover under the configured timeout and screens
// the result before anything downstream sees it.
func (s *ProofServiceImpl) GenerateProof(ctx context.Context, input *ports.ProofInput) (*domain.Proof, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	zkProof, err := s.prover.Prove(ctx, input)
	if err != nil {
		return nil, apperror.ErrProofGeneration(fmt.Errorf("prover: %w", err))
	}

	if len(zkProof.PublicSignals) != domain.SignalCount {
		return nil, apperror.ErrProofGeneration(
			fmt.Errorf("expected %d public signals, got %d", domain.SignalCount, len(zkProof.PublicSignals)))
	}
	// Prover success with a zero flag is still a failed proof.
	if zkProof.PublicSignals[domain.SignalValidity] != domain.ValiditySignalOK {
		return nil, apperror.ErrCircuitValidation()
	}
	if zkProof.PublicSignals[domain.SignalAmount] != input.TransferAmount.String() {
		return nil, apperror.ErrSignalMismatch()
	}

	s.log.Debug().
		Dur("elapsed", time.Since(start)).
		Msg("proof generated")

	return &domain.Proof{
		ID:            uuid.New(),
		ProofData:     zkProof.ProofData,
		PublicSignals: zkProof.PublicSignals,
		CreatedAt:     time.Now(),
	}, nil
}

// VerifyProof verifies the proof cryptographically, then checks every
// public signal against values recomputed from the witness material. The
// proof is accepted only when both pass.
func (s *ProofServiceImpl) VerifyProof(ctx context.Context, proof *domain.Proof, input *ports.ProofInput) (*ports.VerificationResult, error) {
	if len(proof.PublicSignals) != domain.SignalCount {
		return nil, apperror.ErrProofRejected()
	}

	start := time.Now()
	ok, err := s.prover.Verify(ctx, proof.ProofData, proof.PublicSignals)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verifier: %w", err))
	}
	if !ok {
		s.log.Warn().Str("proof_id", proof.ID.String()).Msg("proof rejected by verifier")
		return nil, apperror.ErrProofRejected()
	}
	if proof.PublicSignals[domain.SignalValidity] != domain.ValiditySignalOK {
		return nil, apperror.ErrCircuitValidation()
	}

	// Signal substitution defense: recompute what the signals must be for
	// this request and compare, rather than trusting the claimed set.
	expected, err := s.expectedSignals(input)
	if err != nil {
		return nil, err
	}
	for i, want := range expected {
		if proof.PublicSignals[i] != want {
			s.log.Warn().
				Str("proof_id", proof.ID.String()).
				Int("signal", i).
				Msg("public signal does not match request context")
			return nil, apperror.ErrSignalMismatch()
		}
	}

	proof.VerificationTimeMs = elapsed

	return &ports.VerificationResult{
		IsValid:              true,
		TransferAmount:       proof.PublicSignals[domain.SignalAmount],
		BalanceCommitment:    proof.PublicSignals[domain.SignalCommitment],
		NullifierHash:        proof.PublicSignals[domain.SignalNullifier],
		NewBalanceCommitment: proof.PublicSignals[domain.SignalNewCommitment],
		VerificationTimeMs:   elapsed,
	}, nil
}

func (s *ProofServiceImpl) expectedSignals(input *ports.ProofInput) ([]string, error) {
	commitment, err := s.engine.Commit(input.Balance, input.Nonce, input.Salt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("recomputing commitment: %w", err))
	}
	nullifier, err := s.engine.Nullifier(input.Balance, input.Salt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("recomputing nullifier: %w", err))
	}
	newBalance := new(big.Int).Sub(input.Balance, input.TransferAmount)
	newCommitment, err := s.engine.Advance(newBalance, input.Nonce, input.Salt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("recomputing next commitment: %w", err))
	}

	expected := make([]string, domain.SignalCount)
	expected[domain.SignalAmount] = input.TransferAmount.String()
	expected[domain.SignalCommitment] = commitment
	expected[domain.SignalNullifier] = nullifier
	expected[domain.SignalValidity] = domain.ValiditySignalOK
	expected[domain.SignalNewCommitment] = newCommitment
	return expected, nil
}
