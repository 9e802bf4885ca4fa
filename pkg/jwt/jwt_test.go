package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	manager := NewManager("test-secret", 900)

	token, err := manager.GenerateToken(42, "asha")
	require.NoError(t, err)

	claims, err := manager.VerifyToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "asha", claims.Username)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", 900).GenerateToken(1, "asha")
	require.NoError(t, err)

	_, err = NewManager("secret-b", 900).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := NewManager("test-secret", -60)
	token, err := manager.GenerateToken(1, "asha")
	require.NoError(t, err)

	_, err = manager.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewManager("test-secret", 900).VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
