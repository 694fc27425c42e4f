// Package audit publishes security-relevant token events.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
)

// Event types.
const (
	TokenIssued     = "token.issued"
	TokenRefreshed  = "token.refreshed"
	TokenRevoked    = "token.revoked"
	LoginFailed     = "login.failed"
	AccountLocked   = "account.locked"
	RefreshReplayed = "refresh.replayed"
	KeyRotated      = "key.rotated"
)

// Event never carries credentials or token values.
type Event struct {
	Type      string    `json:"type"`
	Time      time.Time `json:"time"`
	RequestID string    `json:"request_id,omitempty"`
	GrantType string    `json:"grant_type,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	Username  string    `json:"username,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Publisher delivers events. Publishing is best effort: failures are
// logged and never fail the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Log writes events to the request logger.
type Log struct{}

func (Log) Publish(ctx context.Context, e Event) {
	stamp(ctx, &e)
	level := slog.LevelInfo
	switch e.Type {
	case LoginFailed, AccountLocked, RefreshReplayed:
		level = slog.LevelWarn
	}
	slogx.FromContext(ctx).Log(ctx, level, "audit event",
		"event", e.Type,
		"grant_type", e.GrantType,
		"client_id", e.ClientID,
		"sub", e.Subject,
		"username", e.Username,
		"scopes", e.Scopes,
		"reason", e.Reason,
	)
}

func stamp(ctx context.Context, e *Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = slogx.RequestIDFrom(ctx)
	}
}
