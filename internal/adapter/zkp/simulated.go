package zkp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/internal/zk"
)

// SimulatedProver is a structure-preserving test double for ports.Prover.
// It emits the same five public signals as the real prover, computed with
// the same native hashes, but the proof blob is a digest of the signals
// rather than a Groth16 proof. Verify accepts only proofs this instance
// issued, with their exact signals. Never a production dependency.
type SimulatedProver struct {
	mu     sync.Mutex
	issued map[string][]string

	// TamperValidity makes Prove emit a "0" validity flag, for exercising
	// the orchestrator's flag check.
	TamperValidity bool
	// RejectAll makes Verify fail every proof.
	RejectAll bool
}

// NewSimulatedProver creates an empty simulated prover.
func NewSimulatedProver() *SimulatedProver {
	return &SimulatedProver{issued: make(map[string][]string)}
}

// Prove computes real signals over the input and records the issuance.
func (p *SimulatedProver) Prove(ctx context.Context, input *ports.ProofInput) (*ports.ZKProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input == nil || input.Balance == nil || input.TransferAmount == nil {
		return nil, fmt.Errorf("incomplete proof input")
	}
	salt, err := zk.ParseFieldElement(input.Salt)
	if err != nil {
		return nil, fmt.Errorf("parsing salt: %w", err)
	}
	if input.Balance.Cmp(input.TransferAmount) < 0 {
		return nil, fmt.Errorf("unsatisfiable witness: amount exceeds balance")
	}

	commitment, err := zk.CommitmentHash(input.Balance, big.NewInt(input.Nonce), salt)
	if err != nil {
		return nil, err
	}
	nullifier, err := zk.NullifierHash(input.Balance, salt)
	if err != nil {
		return nil, err
	}
	newBalance := new(big.Int).Sub(input.Balance, input.TransferAmount)
	newCommitment, err := zk.CommitmentHash(newBalance, big.NewInt(input.Nonce+1), salt)
	if err != nil {
		return nil, err
	}

	signals := make([]string, domain.SignalCount)
	signals[domain.SignalAmount] = input.TransferAmount.String()
	signals[domain.SignalCommitment] = commitment.String()
	signals[domain.SignalNullifier] = nullifier.String()
	signals[domain.SignalValidity] = domain.ValiditySignalOK
	signals[domain.SignalNewCommitment] = newCommitment.String()
	if p.TamperValidity {
		signals[domain.SignalValidity] = "0"
	}

	digest := sha256.Sum256([]byte(strings.Join(signals, "|")))
	proofData := "sim:" + hex.EncodeToString(digest[:])

	p.mu.Lock()
	p.issued[proofData] = append([]string(nil), signals...)
	p.mu.Unlock()

	return &ports.ZKProof{ProofData: proofData, PublicSignals: signals}, nil
}

// Verify accepts a proof iff this prover issued it with identical signals.
func (p *SimulatedProver) Verify(ctx context.Context, proofData string, publicSignals []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.RejectAll {
		return false, nil
	}

	p.mu.Lock()
	recorded, ok := p.issued[proofData]
	p.mu.Unlock()
	if !ok || len(recorded) != len(publicSignals) {
		return false, nil
	}
	for i := range recorded {
		if recorded[i] != publicSignals[i] {
			return false, nil
		}
	}
	return true, nil
}
