package money

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string // expected minor units, decimal
		wantErr bool
	}{
		{"integer", "250", "250000000000000000000", false},
		{"zero", "0", "0", false},
		{"fraction", "0.5", "500000000000000000", false},
		{"mixed", "1000.25", "1000250000000000000000", false},
		{"leading dot", ".5", "500000000000000000", false},
		{"max precision", "0.000000000000000001", "1", false},
		{"whitespace trimmed", " 42 ", "42000000000000000000", false},
		{"empty", "", "", true},
		{"negative", "-1", "", true},
		{"too many fraction digits", "0.0000000000000000001", "", true},
		{"trailing dot", "5.", "", true},
		{"letters", "12a", "", true},
		{"double dot", "1.2.3", "", true},
		{"bare dot", ".", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	v, err := ToMinorUnits("1000.25")
	require.NoError(t, err)
	s, err := FromMinorUnits(v)
	require.NoError(t, err)
	assert.Equal(t, "1000.25", s)

	s, err = FromMinorUnits(big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "0", s)

	s, err = FromMinorUnits(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0.000000000000000001", s)

	_, err = FromMinorUnits(big.NewInt(-1))
	assert.Error(t, err)

	_, err = FromMinorUnits(nil)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	// Format(Parse(s)) is canonical; Parse(Format(v)) is exact.
	inputs := []string{"0", "1", "250", "750", "1000.25", "0.000000000000000001", "999999999999.999999"}
	for _, in := range inputs {
		v, err := ToMinorUnits(in)
		require.NoError(t, err)
		out, err := FromMinorUnits(v)
		require.NoError(t, err)
		assert.Equal(t, in, out, "canonical round trip for %q", in)

		back, err := ToMinorUnits(out)
		require.NoError(t, err)
		assert.Zero(t, v.Cmp(back))
	}

	// Non-canonical forms normalize.
	v, err := ToMinorUnits("250.500")
	require.NoError(t, err)
	out, err := FromMinorUnits(v)
	require.NoError(t, err)
	assert.Equal(t, "250.5", out)
}

func TestCmp(t *testing.T) {
	c, err := Cmp("100", "250")
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Cmp("250", "250.0")
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Cmp("250.000000000000000001", "250")
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	_, err = Cmp("abc", "1")
	assert.Error(t, err)
}
