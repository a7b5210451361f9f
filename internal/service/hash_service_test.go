package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashService()

	tests := []struct {
		name   string
		secret string
	}{
		{"password", "correct horse battery staple"},
		{"short PIN", "123456"},
		{"unicode", "pässwörd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := svc.Hash(tt.secret)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

			ok, err := svc.Verify(tt.secret, hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = svc.Verify(tt.secret+"x", hash)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestArgon2HashService_SaltedHashesDiffer(t *testing.T) {
	svc := NewArgon2HashService()

	h1, err := svc.Hash("123456")
	require.NoError(t, err)
	h2, err := svc.Hash("123456")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestArgon2HashService_VerifyMalformedHash(t *testing.T) {
	svc := NewArgon2HashService()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19"},
		{"bad base64 salt", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify("secret", tt.hash)
			assert.Error(t, err)
		})
	}
}
