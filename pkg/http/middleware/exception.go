package middleware

import (
	"runtime/debug"

	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// ExceptionMiddleware turns a handler panic into a 500 envelope.
func ExceptionMiddleware(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic in handler", "path", c.Path(), "panic", r, "stack", string(debug.Stack()))
			err = http.WithRepErrMsg(c, http.InternalError, panicMessage(r), c.Path())
		}
	}()
	return c.Next()
}

// string panics are meant for the client, anything else is hidden
func panicMessage(r any) string {
	if msg, ok := r.(string); ok {
		return msg
	}
	return http.InternalError.Msg
}
