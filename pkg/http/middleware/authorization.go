package middleware

import (
	"errors"
	"strings"

	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/http/jwt"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/gofiber/fiber/v2"
	goJwt "github.com/golang-jwt/jwt/v5"
)

// ClaimsKey is the fiber local holding *jwt.AuthClaims.
const ClaimsKey = "claims"

// AuthorizationMiddleware requires a valid "Bearer <jwt>" header.
func AuthorizationMiddleware(secretKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return http.WithRepErr(c, http.AuthorizationEmpty, c.Path())
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || token == "" {
			return http.WithRepErr(c, http.TokenFormatIncorrect, c.Path())
		}

		claims, err := jwt.ParseToken(token, secretKey)
		if err != nil {
			if errors.Is(err, goJwt.ErrTokenExpired) {
				return http.WithRepErr(c, http.TokenExpired, c.Path())
			}
			log.Warnw("rejected bearer token", "path", c.Path(), "error", err)
			return http.WithRepErr(c, http.InvalidToken, c.Path())
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// Subject returns the authenticated caller, or "" on unauthenticated routes.
func Subject(c *fiber.Ctx) string {
	claims, ok := c.Locals(ClaimsKey).(*jwt.AuthClaims)
	if !ok {
		return ""
	}
	return claims.Subject
}
