package approval

import (
	"errors"
	"slices"
	"time"
)

// Status of an approval
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

func (s Status) IsTerminal() bool {
	return s != StatusPending
}

var (
	ErrNotFound             = errors.New("approval not found")
	ErrNotPending           = errors.New("approval is not pending")
	ErrUnauthorizedApprover = errors.New("approver is not allowed to decide")
	ErrRejected             = errors.New("approval rejected")
	ErrExpired              = errors.New("approval expired")
	ErrCanceled             = errors.New("approval canceled")
	// ErrConflict means the approval changed between read and write
	ErrConflict = errors.New("approval changed concurrently")
)

// Approval is a pending or decided authorization for a gated stage
type Approval struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	Pipeline    string     `json:"pipeline"`
	Stage       string     `json:"stage"`
	Environment string     `json:"environment,omitempty"`
	Approvers   []string   `json:"approvers,omitempty"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	DecidedBy   string     `json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	Comment     string     `json:"comment,omitempty"`
}

// CanDecide reports whether approver is on the allowed list. An empty list
// allows any identified approver.
func (a *Approval) CanDecide(approver string) bool {
	if approver == "" {
		return false
	}
	return len(a.Approvers) == 0 || slices.Contains(a.Approvers, approver)
}

// Overdue reports whether a pending approval is past its expiry
func (a *Approval) Overdue(now time.Time) bool {
	return a.Status == StatusPending && !now.Before(a.ExpiresAt)
}

func (a *Approval) clone() *Approval {
	c := *a
	c.Approvers = slices.Clone(a.Approvers)
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

// Request asks for a decision on a gated stage
type Request struct {
	RunID       string
	Pipeline    string
	Stage       string
	Environment string
	Approvers   []string
	Timeout     time.Duration
}
