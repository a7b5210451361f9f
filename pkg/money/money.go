// Package money converts between display decimal strings and the integer
// minor-unit representation used by the proof system. One canonical scale,
// lossless in both directions.
package money

import (
	"fmt"
	"math/big"
	"strings"
)

// Scale is the number of fractional digits carried by the minor-unit
// representation. All commitments and circuit inputs operate on values at
// this scale.
const Scale = 18

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Scale), nil)

// ToMinorUnits parses a non-negative decimal string ("250", "0.5", "1000.25")
// into minor units. Fails on empty input, non-digit characters, negative
// values and more than Scale fractional digits — amounts are never rounded.
func ToMinorUnits(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty decimal string")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount not allowed: %q", s)
	}
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return nil, fmt.Errorf("malformed decimal string: %q", s)
	}
	if hasFrac && fracPart == "" {
		return nil, fmt.Errorf("malformed decimal string: %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return nil, fmt.Errorf("malformed decimal string: %q", s)
	}
	if len(fracPart) > Scale {
		return nil, fmt.Errorf("more than %d fractional digits: %q", Scale, s)
	}
	padded := fracPart + strings.Repeat("0", Scale-len(fracPart))
	v, ok := new(big.Int).SetString(intPart+padded, 10)
	if !ok {
		return nil, fmt.Errorf("malformed decimal string: %q", s)
	}
	return v, nil
}

// FromMinorUnits renders minor units back into a canonical decimal string:
// no leading zeros, trailing fractional zeros trimmed, no trailing dot.
// FromMinorUnits(ToMinorUnits(s)) normalizes s; the reverse direction is
// exact for every non-negative value.
func FromMinorUnits(v *big.Int) (string, error) {
	if v == nil {
		return "", fmt.Errorf("nil value")
	}
	if v.Sign() < 0 {
		return "", fmt.Errorf("negative value: %s", v.String())
	}
	q, r := new(big.Int).QuoRem(v, unit, new(big.Int))
	if r.Sign() == 0 {
		return q.String(), nil
	}
	frac := fmt.Sprintf("%0*s", Scale, r.String())
	frac = strings.TrimRight(frac, "0")
	return q.String() + "." + frac, nil
}

// Cmp compares two decimal strings exactly, without floating point.
// Returns -1, 0 or 1 like big.Int.Cmp.
func Cmp(a, b string) (int, error) {
	av, err := ToMinorUnits(a)
	if err != nil {
		return 0, err
	}
	bv, err := ToMinorUnits(b)
	if err != nil {
		return 0, err
	}
	return av.Cmp(bv), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
