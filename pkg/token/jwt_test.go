package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 1)
	tok, err := m.GenerateToken("E1", "Ana Ruiz", "auxiliar")
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "E1", claims.Code)
	assert.Equal(t, "Ana Ruiz", claims.Name)
	assert.Equal(t, "auxiliar", claims.Role)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", 1)

	other, err := NewJWTManager("other", 1).GenerateToken("E1", "Ana", "")
	require.NoError(t, err)
	_, err = m.VerifyToken(other)
	assert.Error(t, err)

	expired, err := NewJWTManager("secret", -1).GenerateToken("E1", "Ana", "")
	require.NoError(t, err)
	_, err = m.VerifyToken(expired)
	assert.Error(t, err)

	anonymous, err := m.GenerateToken("", "Ana", "")
	require.NoError(t, err)
	_, err = m.VerifyToken(anonymous)
	assert.Error(t, err)
}
