package http

import (
	"github.com/gofiber/fiber/v2"
)

type ResponseErr struct {
	ErrCode int    `json:"code"`
	ErrMsg  any    `json:"errMsg"`
	Path    string `json:"path,omitempty"`
}

// WithRepErr writes resp as an error envelope using its HTTP status.
func WithRepErr(c *fiber.Ctx, resp *Response, path string) error {
	return c.Status(resp.Status()).JSON(ResponseErr{
		ErrCode: resp.Code,
		ErrMsg:  resp.Msg,
		Path:    path,
	})
}

// WithRepErrMsg writes resp with a custom message.
func WithRepErrMsg(c *fiber.Ctx, resp *Response, errMsg string, path string) error {
	return WithRepErr(c, resp.WithMsg(errMsg), path)
}
