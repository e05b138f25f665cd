package router

import (
	"context"

	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/http/middleware"
	"github.com/gofiber/fiber/v2"
)

func (rt *Router) approvalRouter(r fiber.Router, auth fiber.Handler) {
	approvalGroup := r.Group("/approvals")
	{
		approvalGroup.Get("/", auth, rt.listApprovals)       // GET /approvals?status=&run_id=
		approvalGroup.Get("/:id", auth, rt.getApproval)      // GET /approvals/:id
		approvalGroup.Post("/:id/approve", auth, rt.approve) // POST /approvals/:id/approve
		approvalGroup.Post("/:id/reject", auth, rt.reject)   // POST /approvals/:id/reject
	}
}

// DecisionRequest carries an optional comment; the approver is the token subject
type DecisionRequest struct {
	Comment string `json:"comment"`
}

func (rt *Router) listApprovals(c *fiber.Ctx) error {
	list, err := rt.Approvals.List(c.UserContext(), approval.Filter{
		Status: approval.Status(c.Query("status")),
		RunID:  c.Query("run_id"),
	})
	if err != nil {
		return withErr(c, err)
	}
	return http.WithRepJSON(c, list)
}

func (rt *Router) getApproval(c *fiber.Ctx) error {
	a, err := rt.Approvals.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return withErr(c, err)
	}
	return http.WithRepJSON(c, a)
}

func (rt *Router) approve(c *fiber.Ctx) error {
	return rt.decide(c, rt.Approvals.Approve)
}

func (rt *Router) reject(c *fiber.Ctx) error {
	return rt.decide(c, rt.Approvals.Reject)
}

type decideFunc func(ctx context.Context, id, approver, comment string) (*approval.Approval, error)

func (rt *Router) decide(c *fiber.Ctx, fn decideFunc) error {
	var req DecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return http.WithRepErrMsg(c, http.RequestParameterParsingFailed, err.Error(), c.Path())
		}
	}
	a, err := fn(c.UserContext(), c.Params("id"), subject(c), req.Comment)
	if err != nil {
		return withErr(c, err)
	}
	return http.WithRepJSON(c, a)
}

func subject(c *fiber.Ctx) string {
	return middleware.Subject(c)
}
