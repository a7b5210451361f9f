package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func proofTestInput(t *testing.T, engine *MiMCCommitmentEngine, balance, amount int64) *ports.ProofInput {
	t.Helper()
	salt, err := engine.NewSalt()
	require.NoError(t, err)
	return &ports.ProofInput{
		Balance:        big.NewInt(balance),
		TransferAmount: big.NewInt(amount),
		Nonce:          1,
		Salt:           salt,
	}
}

// consistentSignals computes the signal set a well-behaved prover would
// emit for the input.
func consistentSignals(t *testing.T, engine *MiMCCommitmentEngine, input *ports.ProofInput) []string {
	t.Helper()
	commitment, err := engine.Commit(input.Balance, input.Nonce, input.Salt)
	require.NoError(t, err)
	nullifier, err := engine.Nullifier(input.Balance, input.Salt)
	require.NoError(t, err)
	newBalance := new(big.Int).Sub(input.Balance, input.TransferAmount)
	newCommitment, err := engine.Advance(newBalance, input.Nonce, input.Salt)
	require.NoError(t, err)
	return []string{
		input.TransferAmount.String(), commitment, nullifier,
		domain.ValiditySignalOK, newCommitment,
	}
}

func TestProofService_BuildProofInput(t *testing.T) {
	engine := NewMiMCCommitmentEngine()
	svc := NewProofService(nil, engine, 0, zerolog.Nop())

	t.Run("sufficient balance", func(t *testing.T) {
		input, err := svc.BuildProofInput(big.NewInt(1000), big.NewInt(250), 1, "42")
		require.NoError(t, err)
		assert.Equal(t, int64(1), input.Nonce)
	})

	t.Run("insufficient balance fails fast", func(t *testing.T) {
		_, err := svc.BuildProofInput(big.NewInt(100), big.NewInt(250), 1, "42")
		assert.Equal(t, "BAL_001", appCode(t, err))
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := svc.BuildProofInput(big.NewInt(100), big.NewInt(0), 1, "42")
		assert.Equal(t, "BAL_003", appCode(t, err))
	})
}

func TestProofService_GenerateProof_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, time.Second, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)
	signals := consistentSignals(t, engine, input)

	prover.EXPECT().Prove(gomock.Any(), input).Return(&ports.ZKProof{
		ProofData:     "blob",
		PublicSignals: signals,
	}, nil)

	proof, err := svc.GenerateProof(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "blob", proof.ProofData)
	assert.Equal(t, signals, proof.PublicSignals)
	assert.NotEqual(t, proof.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestProofService_GenerateProof_ProverError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, time.Second, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)
	prover.EXPECT().Prove(gomock.Any(), input).Return(nil, errors.New("prover crashed"))

	_, err := svc.GenerateProof(context.Background(), input)
	assert.Equal(t, "ZKP_004", appCode(t, err))
}

func TestProofService_GenerateProof_ZeroValidityFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, time.Second, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)
	signals := consistentSignals(t, engine, input)
	signals[domain.SignalValidity] = "0"

	// Prover "succeeds" but the circuit reported failure.
	prover.EXPECT().Prove(gomock.Any(), input).Return(&ports.ZKProof{
		ProofData:     "blob",
		PublicSignals: signals,
	}, nil)

	_, err := svc.GenerateProof(context.Background(), input)
	assert.Equal(t, "ZKP_001", appCode(t, err))
}

func TestProofService_GenerateProof_WrongSignalCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, time.Second, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)
	prover.EXPECT().Prove(gomock.Any(), input).Return(&ports.ZKProof{
		ProofData:     "blob",
		PublicSignals: []string{"250", "1"},
	}, nil)

	_, err := svc.GenerateProof(context.Background(), input)
	assert.Equal(t, "ZKP_004", appCode(t, err))
}

func TestProofService_VerifyProof_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, time.Second, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)
	signals := consistentSignals(t, engine, input)
	proof := &domain.Proof{ProofData: "blob", PublicSignals: signals}

	prover.EXPECT().Verify(gomock.Any(), "blob", signals).Return(true, nil)

	result, err := svc.VerifyProof(context.Background(), proof, input)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, signals[domain.SignalCommitment], result.BalanceCommitment)
	assert.Equal(t, signals[domain.SignalNullifier], result.NullifierHash)
	assert.Equal(t, signals[domain.SignalNewCommitment], result.NewBalanceCommitment)
	assert.GreaterOrEqual(t, result.VerificationTimeMs, int64(0))
}

func TestProofService_VerifyProof_VerifierRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, time.Second, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)
	signals := consistentSignals(t, engine, input)
	proof := &domain.Proof{ProofData: "blob", PublicSignals: signals}

	prover.EXPECT().Verify(gomock.Any(), "blob", signals).Return(false, nil)

	_, err := svc.VerifyProof(context.Background(), proof, input)
	assert.Equal(t, "ZKP_002", appCode(t, err))
}

func TestProofService_VerifyProof_SignalSubstitution(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, time.Second, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)

	// A valid proof for some other state: the verifier passes it, but the
	// signals do not match this request's recomputed values.
	otherInput := proofTestInput(t, engine, 5000, 250)
	otherSignals := consistentSignals(t, engine, otherInput)
	proof := &domain.Proof{ProofData: "blob", PublicSignals: otherSignals}

	prover.EXPECT().Verify(gomock.Any(), "blob", otherSignals).Return(true, nil)

	_, err := svc.VerifyProof(context.Background(), proof, input)
	assert.Equal(t, "ZKP_003", appCode(t, err))
}

func TestProofService_GenerateProof_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewMiMCCommitmentEngine()
	prover := mocks.NewMockProver(ctrl)
	svc := NewProofService(prover, engine, 10*time.Millisecond, zerolog.Nop())

	input := proofTestInput(t, engine, 1000, 250)

	prover.EXPECT().Prove(gomock.Any(), input).DoAndReturn(
		func(ctx context.Context, _ *ports.ProofInput) (*ports.ZKProof, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	_, err := svc.GenerateProof(context.Background(), input)
	assert.Equal(t, "ZKP_004", appCode(t, err))
}
