package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

type Http struct {
	Host            string
	Port            int
	AccessLog       bool
	BodyLimit       int // bytes
	ReadTimeout     int // seconds
	WriteTimeout    int
	IdleTimeout     int
	ShutdownTimeout int
	TLS             TLS
	Auth            Auth
}

type TLS struct {
	CertFile string
	KeyFile  string
}

// Auth configures the bearer tokens used by approvers on the API.
type Auth struct {
	SecretKey string
	// AccessExpire is the lifetime of issued tokens
	AccessExpire time.Duration
	// WebhookSecret verifies X-Hub-Signature-256 on inbound webhooks
	WebhookSecret string
}

// SetDefaults fills unset listener and auth options
func (h *Http) SetDefaults() {
	if h.Host == "" {
		h.Host = "0.0.0.0"
	}
	if h.Port == 0 {
		h.Port = 8080
	}
	if h.ReadTimeout == 0 {
		h.ReadTimeout = 30
	}
	if h.WriteTimeout == 0 {
		h.WriteTimeout = 30
	}
	if h.IdleTimeout == 0 {
		h.IdleTimeout = 120
	}
	if h.ShutdownTimeout == 0 {
		h.ShutdownTimeout = 10
	}
	if h.Auth.AccessExpire == 0 {
		h.Auth.AccessExpire = 24 * time.Hour
	}
}

func (h Http) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// NewApp creates a fiber app that encodes with sonic and renders unhandled
// errors in the unified response envelope.
func NewApp(cfg Http) *fiber.App {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 4 * 1024 * 1024
	}
	return fiber.New(fiber.Config{
		AppName:               "conveyor",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(cfg.IdleTimeout) * time.Second,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          errorHandler,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return WithRepErr(c, NotFound, c.Path())
		case fiber.StatusMethodNotAllowed:
			return WithRepErr(c, MethodNotAllowed, c.Path())
		case fiber.StatusRequestEntityTooLarge:
			return WithRepErr(c, BadRequest.WithMsg(fe.Message), c.Path())
		}
	}
	return WithRepErr(c, InternalError, c.Path())
}
