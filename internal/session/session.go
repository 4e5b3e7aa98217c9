// Package session stores in-flight chat intake conversations. A
// conversation accumulates the requester's answers across messages and
// expires after a TTL of inactivity, so abandoned chats clean
// themselves up. Redis backs the store in production; an in-memory
// implementation covers tests and redis-less deployments.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a conversation id is unknown or expired.
var ErrNotFound = errors.New("session: conversation not found")

// Conversation stages. The chat intake walks a conversation through
// them in order until it can assemble a full discount request.
const (
	StageEmail   = "email"
	StageName    = "name"
	StageShow    = "show"
	StageConfirm = "confirm"
	StageDone    = "done"
)

// Conversation is the state of one chat intake session.
type Conversation struct {
	ID          string    `json:"id"`
	Stage       string    `json:"stage"`
	MemberEmail string    `json:"member_email,omitempty"`
	MemberName  string    `json:"member_name,omitempty"`
	Description string    `json:"description,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists conversations with a sliding TTL: every Put renews
// the expiry.
type Store interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Put(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, id string) error
}
