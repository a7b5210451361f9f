// Package zkp contains prover adapters behind the ports.Prover interface:
// a real Groth16 prover over the sufficiency circuit and an in-process
// simulated prover for tests.
package zkp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math/big"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/internal/zk"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"
)

// Groth16Prover implements ports.Prover with gnark's Groth16 backend on
// BN254. The circuit is compiled and the keys generated once at
// construction; Prove and Verify are safe for concurrent use.
type Groth16Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
	log zerolog.Logger
}

// NewGroth16Prover compiles the sufficiency circuit and runs the Groth16
// setup. Setup here is unceremonied; key custody is out of scope.
func NewGroth16Prover(log zerolog.Logger) (*Groth16Prover, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &zk.SufficiencyCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compiling circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	log.Info().
		Int("constraints", ccs.GetNbConstraints()).
		Msg("sufficiency circuit compiled")

	return &Groth16Prover{ccs: ccs, pk: pk, vk: vk, log: log}, nil
}

// Prove generates a sufficiency proof for the given witness material and
// returns it with the five public signals in wire order.
func (p *Groth16Prover) Prove(ctx context.Context, input *ports.ProofInput) (*ports.ZKProof, error) {
	signals, assignmentValues, err := buildSignals(input)
	if err != nil {
		return nil, err
	}

	type result struct {
		proof groth16.Proof
		err   error
	}
	done := make(chan result, 1)

	go func() {
		witness, err := frontend.NewWitness(assignmentValues, ecc.BN254.ScalarField())
		if err != nil {
			done <- result{err: fmt.Errorf("building witness: %w", err)}
			return
		}
		proof, err := groth16.Prove(p.ccs, p.pk, witness)
		done <- result{proof: proof, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("groth16 prove: %w", r.err)
		}
		var buf bytes.Buffer
		if _, err := r.proof.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("serializing proof: %w", err)
		}
		return &ports.ZKProof{
			ProofData:     base64.StdEncoding.EncodeToString(buf.Bytes()),
			PublicSignals: signals,
		}, nil
	}
}

// Verify checks an opaque proof against its claimed public signals. A false
// return with nil error means a well-formed proof that does not verify.
func (p *Groth16Prover) Verify(ctx context.Context, proofData string, publicSignals []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(publicSignals) != domain.SignalCount {
		return false, fmt.Errorf("expected %d public signals, got %d", domain.SignalCount, len(publicSignals))
	}

	values := make([]*big.Int, domain.SignalCount)
	for i, s := range publicSignals {
		v, err := zk.ParseFieldElement(s)
		if err != nil {
			return false, fmt.Errorf("public signal %d: %w", i, err)
		}
		values[i] = v
	}

	assignment := &zk.SufficiencyCircuit{
		TransferAmount:       values[domain.SignalAmount],
		BalanceCommitment:    values[domain.SignalCommitment],
		NullifierHash:        values[domain.SignalNullifier],
		ValidityFlag:         values[domain.SignalValidity],
		NewBalanceCommitment: values[domain.SignalNewCommitment],
	}
	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("building public witness: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(proofData)
	if err != nil {
		return false, fmt.Errorf("decoding proof: %w", err)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(raw)); err != nil {
		return false, fmt.Errorf("deserializing proof: %w", err)
	}

	if err := groth16.Verify(proof, p.vk, publicWitness); err != nil {
		p.log.Debug().Err(err).Msg("proof rejected by verifier")
		return false, nil
	}
	return true, nil
}

// buildSignals computes the five public signals natively and returns them
// alongside the full witness assignment.
func buildSignals(input *ports.ProofInput) ([]string, *zk.SufficiencyCircuit, error) {
	if input == nil || input.Balance == nil || input.TransferAmount == nil {
		return nil, nil, fmt.Errorf("incomplete proof input")
	}
	salt, err := zk.ParseFieldElement(input.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing salt: %w", err)
	}

	nonce := big.NewInt(input.Nonce)
	commitment, err := zk.CommitmentHash(input.Balance, nonce, salt)
	if err != nil {
		return nil, nil, err
	}
	nullifier, err := zk.NullifierHash(input.Balance, salt)
	if err != nil {
		return nil, nil, err
	}
	newBalance := new(big.Int).Sub(input.Balance, input.TransferAmount)
	if newBalance.Sign() < 0 {
		return nil, nil, fmt.Errorf("transfer amount exceeds balance")
	}
	newCommitment, err := zk.CommitmentHash(newBalance, big.NewInt(input.Nonce+1), salt)
	if err != nil {
		return nil, nil, err
	}

	signals := make([]string, domain.SignalCount)
	signals[domain.SignalAmount] = input.TransferAmount.String()
	signals[domain.SignalCommitment] = commitment.String()
	signals[domain.SignalNullifier] = nullifier.String()
	signals[domain.SignalValidity] = domain.ValiditySignalOK
	signals[domain.SignalNewCommitment] = newCommitment.String()

	assignment := &zk.SufficiencyCircuit{
		TransferAmount:       input.TransferAmount,
		BalanceCommitment:    commitment,
		NullifierHash:        nullifier,
		ValidityFlag:         1,
		NewBalanceCommitment: newCommitment,
		Balance:              input.Balance,
		Nonce:                input.Nonce,
		Salt:                 salt,
	}
	return signals, assignment, nil
}
