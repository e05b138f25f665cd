package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "conveyor"

// AuthClaims identifies an API caller; Subject is the approver name.
type AuthClaims struct {
	jwt.RegisteredClaims
}

// GenToken signs an access token for subject valid for ttl.
func GenToken(subject string, secretKey []byte, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is empty")
	}
	if len(secretKey) == 0 {
		return "", errors.New("secret key is empty")
	}
	now := time.Now()
	claims := &AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// ParseToken validates an access token and returns its claims.
// Expired tokens yield jwt.ErrTokenExpired.
func ParseToken(token, secretKey string) (*AuthClaims, error) {
	claims := new(AuthClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, jwt.ErrTokenExpired
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
