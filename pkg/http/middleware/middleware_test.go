package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/http/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newApp() *fiber.App {
	app := http.NewApp(http.Http{})
	app.Use(ExceptionMiddleware)
	app.Use(AccessLogMiddleware(&http.Http{AccessLog: true}))
	app.Get("/panic", func(c *fiber.Ctx) error { panic("stage graph exploded") })
	app.Get("/whoami", AuthorizationMiddleware(secret), func(c *fiber.Ctx) error {
		return http.WithRepJSON(c, Subject(c))
	})
	return app
}

func TestExceptionMiddleware(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest(fiber.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "stage graph exploded")
}

func TestAuthorizationMiddleware(t *testing.T) {
	app := newApp()
	valid, err := jwt.GenToken("alice", []byte(secret), time.Hour)
	require.NoError(t, err)
	expired, err := jwt.GenToken("alice", []byte(secret), -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		status   int
		contains string
	}{
		{name: "missing", header: "", status: fiber.StatusUnauthorized, contains: "4404"},
		{name: "wrong scheme", header: "Basic abc", status: fiber.StatusUnauthorized, contains: "4408"},
		{name: "expired", header: "Bearer " + expired, status: fiber.StatusUnauthorized, contains: "4407"},
		{name: "garbage", header: "Bearer nope", status: fiber.StatusUnauthorized, contains: "4405"},
		{name: "valid", header: "Bearer " + valid, status: fiber.StatusOK, contains: `"detail":"alice"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tt.contains)
		})
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest(fiber.MethodGet, "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"path":"/nowhere"`)
}
