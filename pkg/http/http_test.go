package http

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSetDefaults(t *testing.T) {
	h := Http{Port: 9000}
	h.SetDefaults()
	assert.Equal(t, "0.0.0.0:9000", h.Addr())
	assert.Equal(t, 10, h.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, h.Auth.AccessExpire)
}

func TestResponse_WithMsg(t *testing.T) {
	r := NotFound.WithMsg("run not found")
	assert.Equal(t, "run not found", r.Msg)
	assert.Equal(t, "Not found", NotFound.Msg)
	assert.Equal(t, fiber.StatusNotFound, r.Status())
	assert.Equal(t, fiber.StatusOK, (&Response{}).Status())
}

func call(t *testing.T, app *fiber.App, method, path string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestNewApp_Envelopes(t *testing.T) {
	app := NewApp(Http{})
	app.Get("/ok", func(c *fiber.Ctx) error { return WithRepJSON(c, fiber.Map{"id": "r1"}) })
	app.Post("/created", func(c *fiber.Ctx) error { return WithRepStatus(c, fiber.StatusCreated, nil) })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return WithRepErrMsg(c, Conflict, "run already finished", c.Path())
	})

	status, body := call(t, app, fiber.MethodGet, "/ok")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(Success.Code), gjson.GetBytes(body, "code").Int())
	assert.Equal(t, "r1", gjson.GetBytes(body, "detail.id").String())

	status, _ = call(t, app, fiber.MethodPost, "/created")
	assert.Equal(t, fiber.StatusCreated, status)

	status, body = call(t, app, fiber.MethodGet, "/boom")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, int64(InternalError.Code), gjson.GetBytes(body, "code").Int())

	status, body = call(t, app, fiber.MethodGet, "/conflict")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "run already finished", gjson.GetBytes(body, "errMsg").String())
	assert.Equal(t, "/conflict", gjson.GetBytes(body, "path").String())

	status, body = call(t, app, fiber.MethodGet, "/nowhere")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, int64(NotFound.Code), gjson.GetBytes(body, "code").Int())
}
