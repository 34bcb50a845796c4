// Package notify delivers verification codes out of band. Every sink satisfies
// Sender; the queue sinks hand the code to another process for delivery.
package notify

import (
	"context"
	"time"
)

// Sender delivers one verification code to one address.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

// Message is the wire form of a queued verification code.
type Message struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}
