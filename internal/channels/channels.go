// Package channels adapts the messaging platforms (WhatsApp via Twilio or
// Evolution, Telegram) to the normalized message model. Inbound webhooks
// are parsed into bus.InboundMessage; outbound replies are delivered with
// bounded retries.
package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ventabot/ventabot/internal/bus"
)

// SendResult identifies a delivered message on its platform.
type SendResult struct {
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Provider is one messaging transport.
type Provider interface {
	// Name returns the channel identifier ("whatsapp" or "telegram").
	Name() string

	// SendText delivers a text reply to a recipient.
	SendText(ctx context.Context, to, body string) (SendResult, error)

	// ParseIncoming converts a raw webhook payload into a normalized
	// message. Implementations define the payload encoding (form or JSON).
	ParseIncoming(payload []byte) (bus.InboundMessage, error)
}

// SendWithRetry wraps a provider send in exponential backoff, 3 attempts.
// Outbound messaging APIs fail transiently often enough that a plain send
// would drop customer replies.
func SendWithRetry(ctx context.Context, p Provider, to, body string) (SendResult, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = time.Second

	res, err := backoff.Retry(ctx, func() (SendResult, error) {
		return p.SendText(ctx, to, body)
	}, backoff.WithBackOff(exp), backoff.WithMaxTries(3))
	if err != nil {
		return SendResult{}, fmt.Errorf("send via %s: %w", p.Name(), err)
	}
	return res, nil
}

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
