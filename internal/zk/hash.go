package zk

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// CommitmentHash computes H(balance, nonce, salt) with the native MiMC,
// matching the circuit's in-circuit hash block for block.
func CommitmentHash(balance, nonce, salt *big.Int) (*big.Int, error) {
	return hashFields(balance, nonce, salt)
}

// NullifierHash computes H(balance, salt).
func NullifierHash(balance, salt *big.Int) (*big.Int, error) {
	return hashFields(balance, salt)
}

// ParseFieldElement parses a decimal string into a BN254 scalar field
// element, rejecting values outside the field.
func ParseFieldElement(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal field element: %q", s)
	}
	if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return nil, fmt.Errorf("value outside scalar field")
	}
	return v, nil
}

// RandomFieldElement draws a uniformly random BN254 scalar, returned as a
// decimal string.
func RandomFieldElement() (string, error) {
	var el fr.Element
	if _, err := el.SetRandom(); err != nil {
		return "", fmt.Errorf("sampling field element: %w", err)
	}
	return el.BigInt(new(big.Int)).String(), nil
}

// hashFields writes each value as one canonical 32-byte field element, the
// same framing gnark's std MiMC uses for one frontend.Variable per Write.
func hashFields(values ...*big.Int) (*big.Int, error) {
	h := mimcNative.NewMiMC()
	for _, v := range values {
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("hash input must be a non-negative integer")
		}
		if v.Cmp(fr.Modulus()) >= 0 {
			return nil, fmt.Errorf("hash input exceeds scalar field")
		}
		var el fr.Element
		el.SetBigInt(v)
		b := el.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return nil, fmt.Errorf("writing hash input: %w", err)
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}
