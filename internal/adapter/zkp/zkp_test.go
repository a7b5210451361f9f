package zkp

import (
	"context"
	"math/big"
	"testing"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/internal/zk"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput(t *testing.T, balance, amount int64) *ports.ProofInput {
	t.Helper()
	salt, err := zk.RandomFieldElement()
	require.NoError(t, err)
	return &ports.ProofInput{
		Balance:        big.NewInt(balance),
		TransferAmount: big.NewInt(amount),
		Nonce:          2,
		Salt:           salt,
	}
}

func TestGroth16Prover_ProveAndVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}

	prover, err := NewGroth16Prover(zerolog.Nop())
	require.NoError(t, err)

	input := testInput(t, 1000, 250)
	proof, err := prover.Prove(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, proof.PublicSignals, domain.SignalCount)
	assert.Equal(t, "250", proof.PublicSignals[domain.SignalAmount])
	assert.Equal(t, domain.ValiditySignalOK, proof.PublicSignals[domain.SignalValidity])

	ok, err := prover.Verify(context.Background(), proof.ProofData, proof.PublicSignals)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGroth16Prover_RejectsTamperedSignals(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}

	prover, err := NewGroth16Prover(zerolog.Nop())
	require.NoError(t, err)

	input := testInput(t, 1000, 250)
	proof, err := prover.Prove(context.Background(), input)
	require.NoError(t, err)

	// Claiming a different amount under the same proof must not verify.
	tampered := append([]string(nil), proof.PublicSignals...)
	tampered[domain.SignalAmount] = "1"
	ok, err := prover.Verify(context.Background(), proof.ProofData, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGroth16Prover_SignalCount(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}

	prover, err := NewGroth16Prover(zerolog.Nop())
	require.NoError(t, err)

	_, err = prover.Verify(context.Background(), "irrelevant", []string{"1", "2"})
	assert.Error(t, err)
}

func TestSimulatedProver_ProveAndVerify(t *testing.T) {
	prover := NewSimulatedProver()

	input := testInput(t, 1000, 250)
	proof, err := prover.Prove(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, proof.PublicSignals, domain.SignalCount)

	ok, err := prover.Verify(context.Background(), proof.ProofData, proof.PublicSignals)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSimulatedProver_SignalsMatchNativeHashes(t *testing.T) {
	prover := NewSimulatedProver()

	input := testInput(t, 1000, 250)
	proof, err := prover.Prove(context.Background(), input)
	require.NoError(t, err)

	salt, err := zk.ParseFieldElement(input.Salt)
	require.NoError(t, err)
	commitment, err := zk.CommitmentHash(input.Balance, big.NewInt(input.Nonce), salt)
	require.NoError(t, err)
	assert.Equal(t, commitment.String(), proof.PublicSignals[domain.SignalCommitment])

	newCommitment, err := zk.CommitmentHash(big.NewInt(750), big.NewInt(input.Nonce+1), salt)
	require.NoError(t, err)
	assert.Equal(t, newCommitment.String(), proof.PublicSignals[domain.SignalNewCommitment])
}

func TestSimulatedProver_RejectsForeignAndTamperedProofs(t *testing.T) {
	prover := NewSimulatedProver()

	input := testInput(t, 1000, 250)
	proof, err := prover.Prove(context.Background(), input)
	require.NoError(t, err)

	ok, err := prover.Verify(context.Background(), "sim:deadbeef", proof.PublicSignals)
	require.NoError(t, err)
	assert.False(t, ok)

	tampered := append([]string(nil), proof.PublicSignals...)
	tampered[domain.SignalNewCommitment] = "12345"
	ok, err = prover.Verify(context.Background(), proof.ProofData, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSimulatedProver_UnsatisfiableWitness(t *testing.T) {
	prover := NewSimulatedProver()
	_, err := prover.Prove(context.Background(), testInput(t, 100, 250))
	assert.Error(t, err)
}

func TestSimulatedProver_TamperValidity(t *testing.T) {
	prover := NewSimulatedProver()
	prover.TamperValidity = true

	proof, err := prover.Prove(context.Background(), testInput(t, 1000, 250))
	require.NoError(t, err)
	assert.Equal(t, "0", proof.PublicSignals[domain.SignalValidity])
}
