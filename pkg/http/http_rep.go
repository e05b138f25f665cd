// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	status int

	Code   int    `json:"code"`
	Detail any    `json:"detail,omitempty"`
	Msg    string `json:"msg"`
}

// WithRepJSON writes detail in a success envelope.
func WithRepJSON(c *fiber.Ctx, detail any) error {
	return c.JSON(Response{
		Code:   Success.Code,
		Detail: detail,
		Msg:    Success.Msg,
	})
}

// WithRepStatus writes detail in a success envelope with a non-200 status, e.g. 201 or 202.
func WithRepStatus(c *fiber.Ctx, status int, detail any) error {
	return c.Status(status).JSON(Response{
		Code:   Success.Code,
		Detail: detail,
		Msg:    Success.Msg,
	})
}

// WithRepDetail writes resp with detail attached.
func WithRepDetail(c *fiber.Ctx, resp *Response, detail any) error {
	return c.Status(resp.Status()).JSON(Response{
		Code:   resp.Code,
		Detail: detail,
		Msg:    resp.Msg,
	})
}
