package notify

import (
	"context"
	"time"
)

// Notifier delivers best-effort push notifications for recipients with
// no live connection. Callers log and swallow errors; a failed
// notification never fails the surrounding send.
type Notifier interface {
	Notify(ctx context.Context, userId string, payload Payload) error
	Close() error
}

type Payload struct {
	MessageId  string    `json:"message_id"`
	ChatId     string    `json:"chat_id"`
	SenderId   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Preview    string    `json:"preview,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Noop discards notifications. Used when no broker is configured and
// in tests.
type Noop struct{}

func (Noop) Notify(ctx context.Context, userId string, payload Payload) error { return nil }
func (Noop) Close() error                                                     { return nil }
