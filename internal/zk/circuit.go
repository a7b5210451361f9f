// Package zk holds the sufficiency circuit and its native hash
// counterparts. The in-circuit MiMC and the native MiMC in this package
// must stay in lockstep: a commitment computed out of circuit has to equal
// the one the circuit recomputes from the witness.
package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/rangecheck"
)

// AmountBits bounds balances and transfer amounts to 128 bits so the
// in-field comparison balance >= amount cannot be satisfied by wraparound.
const AmountBits = 128

// SufficiencyCircuit proves knowledge of a (balance, nonce, salt) opening of
// a published balance commitment such that balance >= transferAmount,
// without revealing the balance. Public signal order is fixed; verifiers
// reconstruct the public witness from it positionally.
type SufficiencyCircuit struct {
	TransferAmount       frontend.Variable `gnark:",public"`
	BalanceCommitment    frontend.Variable `gnark:",public"`
	NullifierHash        frontend.Variable `gnark:",public"`
	ValidityFlag         frontend.Variable `gnark:",public"`
	NewBalanceCommitment frontend.Variable `gnark:",public"`

	Balance frontend.Variable
	Nonce   frontend.Variable
	Salt    frontend.Variable
}

// Define declares the circuit constraints.
func (c *SufficiencyCircuit) Define(api frontend.API) error {
	ranger := rangecheck.New(api)
	ranger.Check(c.Balance, AmountBits)
	ranger.Check(c.TransferAmount, AmountBits)

	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// Commitment opening: H(balance, nonce, salt).
	hasher.Write(c.Balance, c.Nonce, c.Salt)
	api.AssertIsEqual(c.BalanceCommitment, hasher.Sum())

	// Nullifier: H(balance, salt). No nonce; it names the spent state.
	hasher.Reset()
	hasher.Write(c.Balance, c.Salt)
	api.AssertIsEqual(c.NullifierHash, hasher.Sum())

	// Post-transfer commitment: H(balance - amount, nonce + 1, salt).
	hasher.Reset()
	hasher.Write(api.Sub(c.Balance, c.TransferAmount), api.Add(c.Nonce, 1), c.Salt)
	api.AssertIsEqual(c.NewBalanceCommitment, hasher.Sum())

	// Sufficiency itself. Both operands are range-checked above.
	api.AssertIsLessOrEqual(c.TransferAmount, c.Balance)

	// The flag is constrained, not merely reported: a proof with flag 0
	// does not verify.
	api.AssertIsEqual(c.ValidityFlag, 1)

	return nil
}
