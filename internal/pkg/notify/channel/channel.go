package channel

import (
	"context"
	"time"
)

// Message is a rendered notification
type Message struct {
	// Kind is stage_finished, run_finished or approval_requested
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Status string `json:"status,omitempty"`
	// Fields carries the structured event for machine consumers
	Fields map[string]any `json:"fields,omitempty"`
	SentAt time.Time      `json:"sent_at"`
}

// INotifyChannel defines the interface for notification channels
type INotifyChannel interface {
	// Type names the channel kind, e.g. slack
	Type() string
	// Send delivers a message
	Send(ctx context.Context, msg *Message) error
	// Validate validates the channel configuration
	Validate() error
}
