package service

import (
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiMCCommitmentEngine_Commit(t *testing.T) {
	engine := NewMiMCCommitmentEngine()
	salt, err := engine.NewSalt()
	require.NoError(t, err)

	c1, err := engine.Commit(big.NewInt(1000), 0, salt)
	require.NoError(t, err)
	assert.NotEmpty(t, c1)

	// Deterministic for identical inputs.
	c2, err := engine.Commit(big.NewInt(1000), 0, salt)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	// Each component perturbs the output.
	cBalance, err := engine.Commit(big.NewInt(1001), 0, salt)
	require.NoError(t, err)
	assert.NotEqual(t, c1, cBalance)

	cNonce, err := engine.Commit(big.NewInt(1000), 1, salt)
	require.NoError(t, err)
	assert.NotEqual(t, c1, cNonce)

	otherSalt, err := engine.NewSalt()
	require.NoError(t, err)
	cSalt, err := engine.Commit(big.NewInt(1000), 0, otherSalt)
	require.NoError(t, err)
	assert.NotEqual(t, c1, cSalt)
}

func TestMiMCCommitmentEngine_CommitNoCollisions(t *testing.T) {
	engine := NewMiMCCommitmentEngine()

	salts := make([]string, 4)
	for i := range salts {
		s, err := engine.NewSalt()
		require.NoError(t, err)
		salts[i] = s
	}

	// Mix of adjacent values and spread magnitudes, crossed with nonces and
	// salts. Every distinct tuple must commit to a distinct value.
	balances := make([]*big.Int, 0, 20)
	for i := int64(0); i < 10; i++ {
		balances = append(balances, big.NewInt(i))
		balances = append(balances, new(big.Int).Lsh(big.NewInt(i+1), uint(7*(i+1))))
	}

	seen := make(map[string]string)
	for _, salt := range salts {
		for _, balance := range balances {
			for nonce := int64(0); nonce < 5; nonce++ {
				tuple := fmt.Sprintf("balance=%s nonce=%d salt=%s", balance, nonce, salt)
				c, err := engine.Commit(balance, nonce, salt)
				require.NoError(t, err, tuple)
				if prev, ok := seen[c]; ok {
					t.Fatalf("commitment collision between (%s) and (%s)", prev, tuple)
				}
				seen[c] = tuple
			}
		}
	}
	assert.Len(t, seen, len(salts)*len(balances)*5)
}

func TestMiMCCommitmentEngine_CommitRejectsBadInput(t *testing.T) {
	engine := NewMiMCCommitmentEngine()
	salt, err := engine.NewSalt()
	require.NoError(t, err)

	_, err = engine.Commit(big.NewInt(-1), 0, salt)
	assert.Error(t, err)

	_, err = engine.Commit(big.NewInt(1000), -1, salt)
	assert.Error(t, err)

	_, err = engine.Commit(big.NewInt(1000), 0, "not-a-field-element")
	assert.Error(t, err)
}

func TestMiMCCommitmentEngine_AdvanceEqualsNextCommit(t *testing.T) {
	engine := NewMiMCCommitmentEngine()
	salt, err := engine.NewSalt()
	require.NoError(t, err)

	advanced, err := engine.Advance(big.NewInt(750), 0, salt)
	require.NoError(t, err)

	next, err := engine.Commit(big.NewInt(750), 1, salt)
	require.NoError(t, err)
	assert.Equal(t, next, advanced)
}

func TestMiMCCommitmentEngine_NullifierIndependentOfNonce(t *testing.T) {
	engine := NewMiMCCommitmentEngine()
	salt, err := engine.NewSalt()
	require.NoError(t, err)

	n, err := engine.Nullifier(big.NewInt(1000), salt)
	require.NoError(t, err)

	c0, err := engine.Commit(big.NewInt(1000), 0, salt)
	require.NoError(t, err)
	assert.NotEqual(t, n, c0)

	// Same balance and salt at a later nonce still names the same spend.
	n2, err := engine.Nullifier(big.NewInt(1000), salt)
	require.NoError(t, err)
	assert.Equal(t, n, n2)
}

func TestMiMCCommitmentEngine_Address(t *testing.T) {
	engine := NewMiMCCommitmentEngine()

	id := uuid.New()
	addr, err := engine.Address(id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "0x"))
	assert.Len(t, addr, 66)

	// Stable per user, distinct across users.
	again, err := engine.Address(id)
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	other, err := engine.Address(uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, addr, other)
}

func TestMiMCCommitmentEngine_NewSalt(t *testing.T) {
	engine := NewMiMCCommitmentEngine()

	s1, err := engine.NewSalt()
	require.NoError(t, err)
	s2, err := engine.NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)

	_, err = engine.Commit(big.NewInt(1), 0, s1)
	assert.NoError(t, err, "fresh salt must be usable directly")
}
