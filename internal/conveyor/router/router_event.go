package router

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
)

const (
	headerGithubEvent     = "X-GitHub-Event"
	headerGithubDelivery  = "X-GitHub-Delivery"
	headerGithubSignature = "X-Hub-Signature-256"
	signaturePrefix       = "sha256="

	// GitHub keeps deliveries for redelivery about this long
	deliveryTTL = 72 * time.Hour
)

func (rt *Router) eventRouter(r fiber.Router, auth fiber.Handler) {
	r.Post("/events", auth, rt.rejectDraining, rt.triggerEvent) // POST /events - trigger pipelines from an event
}

// EventRequest triggers Pipeline, or every pipeline when empty
type EventRequest struct {
	Pipeline string        `json:"pipeline"`
	Event    trigger.Event `json:"event"`
}

type triggerResult struct {
	Runs   []*history.Run `json:"runs"`
	Errors []string       `json:"errors,omitempty"`
}

func (rt *Router) triggerEvent(c *fiber.Ctx) error {
	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.RequestParameterParsingFailed, err.Error(), c.Path())
	}
	if req.Event.Name == "" {
		return http.WithRepErrMsg(c, http.BadRequest, "event.name is required", c.Path())
	}
	if req.Event.Actor == "" {
		req.Event.Actor = subject(c)
	}
	return rt.trigger(c, req.Pipeline, req.Event)
}

func (rt *Router) trigger(c *fiber.Ctx, name string, ev trigger.Event) error {
	runs, err := rt.Pipelines.Trigger(c.UserContext(), name, ev)
	if err != nil && len(runs) == 0 {
		return withErr(c, err)
	}
	res := triggerResult{Runs: runs}
	if err != nil {
		res.Errors = strings.Split(err.Error(), "\n")
	}
	return http.WithRepStatus(c, fiber.StatusCreated, res)
}

// githubWebhook accepts push, pull_request and workflow_dispatch deliveries
func (rt *Router) githubWebhook(c *fiber.Ctx) error {
	body := c.Body()
	secret := rt.Http.Auth.WebhookSecret
	if secret == "" {
		return http.WithRepErr(c, http.WebhookDisabled, c.Path())
	}
	if !validSignature(secret, body, c.Get(headerGithubSignature)) {
		log.Warnw("webhook signature mismatch", "delivery", c.Get(headerGithubDelivery), "ip", c.IP())
		return http.WithRepErr(c, http.InvalidSignature, c.Path())
	}
	if !gjson.ValidBytes(body) {
		return http.WithRepErrMsg(c, http.BadRequest, "payload is not valid JSON", c.Path())
	}

	kind := c.Get(headerGithubEvent)
	if kind == "ping" {
		return http.WithRepJSON(c, fiber.Map{"zen": gjson.GetBytes(body, "zen").String()})
	}

	ev, ok, reason := githubEvent(kind, body)
	if !ok {
		return http.WithRepErrMsg(c, http.NotTriggered, reason, c.Path())
	}
	delivery := c.Get(headerGithubDelivery)
	if delivery != "" && rt.Deliveries != nil {
		seen, err := rt.Deliveries.Seen(c.UserContext(), "github:"+delivery, deliveryTTL)
		if err != nil {
			log.Warnw("webhook delivery check failed", "delivery", delivery, "error", err)
		} else if seen {
			log.Infow("duplicate webhook delivery ignored", "delivery", delivery)
			return http.WithRepJSON(c, fiber.Map{"delivery": delivery, "duplicate": true})
		}
	}
	log.Infow("github webhook received", "event", ev.Name, "ref", ev.Ref, "sha", ev.SHA, "delivery", delivery)
	return rt.trigger(c, "", ev)
}

// githubEvent converts a delivery into an event, or reports why it is ignored
func githubEvent(kind string, body []byte) (trigger.Event, bool, string) {
	payload := gjson.ParseBytes(body)
	actor := payload.Get("sender.login").String()

	switch kind {
	case trigger.EventPush:
		if payload.Get("deleted").Bool() {
			return trigger.Event{}, false, "ref deleted"
		}
		if actor == "" {
			actor = payload.Get("pusher.name").String()
		}
		return trigger.Event{
			Name:  trigger.EventPush,
			Ref:   payload.Get("ref").String(),
			SHA:   payload.Get("after").String(),
			Actor: actor,
		}, true, ""

	case trigger.EventPullRequest:
		switch action := payload.Get("action").String(); action {
		case "opened", "synchronize", "reopened":
		default:
			return trigger.Event{}, false, "pull_request action " + action
		}
		return trigger.Event{
			Name:    trigger.EventPullRequest,
			Ref:     "refs/heads/" + payload.Get("pull_request.head.ref").String(),
			BaseRef: payload.Get("pull_request.base.ref").String(),
			SHA:     payload.Get("pull_request.head.sha").String(),
			Actor:   actor,
		}, true, ""

	case trigger.EventDispatch:
		inputs := map[string]string{}
		payload.Get("inputs").ForEach(func(key, value gjson.Result) bool {
			inputs[key.String()] = value.String()
			return true
		})
		return trigger.Event{
			Name:   trigger.EventDispatch,
			Ref:    payload.Get("ref").String(),
			Actor:  actor,
			Inputs: inputs,
		}, true, ""
	}
	return trigger.Event{}, false, "unsupported event " + kind
}

func validSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
