package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "bf284d03-ba65-42d4-a9fe-0d2fbfe61060"

func TestGenAndParseToken(t *testing.T) {
	token, err := GenToken("alice", []byte(secret), time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "conveyor", claims.Issuer)
}

func TestParseToken_Errors(t *testing.T) {
	expired, err := GenToken("alice", []byte(secret), -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := GenToken("alice", []byte(secret), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(valid, "another-secret")
	assert.Error(t, err)

	_, err = ParseToken("not.a.token", secret)
	assert.Error(t, err)
}

func TestGenToken_Validation(t *testing.T) {
	_, err := GenToken("", []byte(secret), time.Hour)
	assert.Error(t, err)
	_, err = GenToken("alice", nil, time.Hour)
	assert.Error(t, err)
}
