package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthProvider(t *testing.T) {
	p, err := NewAuthProvider(Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewAuthProvider(Config{Type: AuthTypeBearer, Token: "t0k"})
	require.NoError(t, err)
	k, v := p.GetAuthHeader()
	assert.Equal(t, "Authorization", k)
	assert.Equal(t, "Bearer t0k", v)

	p, err = NewAuthProvider(Config{Type: AuthTypeAPIKey, Token: "key"})
	require.NoError(t, err)
	k, v = p.GetAuthHeader()
	assert.Equal(t, "X-API-Key", k)
	assert.Equal(t, "key", v)

	p, err = NewAuthProvider(Config{Type: AuthTypeBasic, Username: "ops", Password: "pw"})
	require.NoError(t, err)
	_, v = p.GetAuthHeader()
	assert.Equal(t, "Basic b3BzOnB3", v)
	assert.Equal(t, AuthTypeBasic, p.GetAuthType())
}

func TestNewAuthProvider_Invalid(t *testing.T) {
	_, err := NewAuthProvider(Config{Type: AuthTypeBearer})
	assert.ErrorContains(t, err, "bearer token is required")

	_, err = NewAuthProvider(Config{Type: AuthTypeBasic})
	assert.ErrorContains(t, err, "username is required")

	_, err = NewAuthProvider(Config{Type: "oauth"})
	assert.ErrorContains(t, err, "unsupported auth type")
}
