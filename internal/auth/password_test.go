package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	h := NewBcryptPasswordHasher(bcrypt.MinCost)
	v := NewBcryptPasswordVerifier()

	hashed, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hashed)

	assert.True(t, v.Verify("correct horse", hashed))
	assert.False(t, v.Verify("wrong", hashed))
	assert.False(t, v.VerifyNothing("correct horse"))
}

func TestBcrypt_InvalidCostFallsBack(t *testing.T) {
	h := NewBcryptPasswordHasher(0)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}
