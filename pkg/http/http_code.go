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

import "github.com/gofiber/fiber/v2"

var (
	Success = success(200, "Request Success")

	Failed                        = failed(fiber.StatusInternalServerError, 500, "Request failed")
	RequestParameterParsingFailed = failed(fiber.StatusBadRequest, 5001, "Request parameter parsing failed")

	Unauthorized         = failed(fiber.StatusUnauthorized, 4401, "Unauthorized")
	AuthorizationEmpty   = failed(fiber.StatusUnauthorized, 4404, "Authorization is empty")
	InvalidToken         = failed(fiber.StatusUnauthorized, 4405, "Invalid token")
	TokenExpired         = failed(fiber.StatusUnauthorized, 4407, "Token is expired")
	TokenFormatIncorrect = failed(fiber.StatusUnauthorized, 4408, "Token format is incorrect")
	InvalidSignature     = failed(fiber.StatusUnauthorized, 4409, "Invalid webhook signature")

	BadRequest       = failed(fiber.StatusBadRequest, 4000, "Bad request")
	NotFound         = failed(fiber.StatusNotFound, 4004, "Not found")
	MethodNotAllowed = failed(fiber.StatusMethodNotAllowed, 4005, "Method not allowed")
	UpgradeRequired  = failed(fiber.StatusUpgradeRequired, 4260, "Websocket upgrade required")

	Forbidden        = failed(fiber.StatusForbidden, 4030, "Forbidden")
	PermissionDenied = failed(fiber.StatusForbidden, 4031, "Permission denied")
	WebhookDisabled  = failed(fiber.StatusForbidden, 4032, "Webhook secret is not configured")

	Conflict     = failed(fiber.StatusConflict, 4090, "Conflict")
	NotTriggered = failed(fiber.StatusAccepted, 2020, "Event does not trigger the pipeline")

	ShuttingDown  = failed(fiber.StatusServiceUnavailable, 5030, "Server is shutting down")
	InternalError = failed(fiber.StatusInternalServerError, 5000, "Internal error, please contact the administrator")
)

func failed(status, code int, msg string) *Response {
	return &Response{status: status, Code: code, Msg: msg}
}

func success(code int, msg string) *Response {
	return &Response{status: fiber.StatusOK, Code: code, Msg: msg}
}

// WithMsg returns a copy of r with a more specific message.
func (r *Response) WithMsg(msg string) *Response {
	clone := *r
	clone.Msg = msg
	return &clone
}

// Status is the HTTP status the response is written with.
func (r *Response) Status() int {
	if r.status == 0 {
		return fiber.StatusOK
	}
	return r.status
}
