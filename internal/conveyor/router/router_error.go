package router

import (
	"errors"

	"github.com/go-arcade/conveyor/internal/conveyor/service"
	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// withErr maps domain errors onto the response envelope
func withErr(c *fiber.Ctx, err error) error {
	var resp *http.Response
	switch {
	case errors.Is(err, service.ErrPipelineNotFound),
		errors.Is(err, orchestrator.ErrRunNotFound),
		errors.Is(err, approval.ErrNotFound):
		resp = http.NotFound
	case errors.Is(err, trigger.ErrNotTriggered):
		resp = http.NotTriggered
	case errors.Is(err, trigger.ErrInvalidEvent):
		resp = http.BadRequest
	case errors.Is(err, approval.ErrUnauthorizedApprover):
		resp = http.PermissionDenied
	case errors.Is(err, orchestrator.ErrRunFinished),
		errors.Is(err, approval.ErrNotPending),
		errors.Is(err, approval.ErrExpired):
		resp = http.Conflict
	default:
		log.Errorw("request failed", "path", c.Path(), "error", err)
		return http.WithRepErr(c, http.InternalError, c.Path())
	}
	return http.WithRepErrMsg(c, resp, err.Error(), c.Path())
}
