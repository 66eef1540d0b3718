package bus

import "time"

// InboundMessage is a normalized message received from a channel
// (WhatsApp via Twilio or Evolution, Telegram).
type InboundMessage struct {
	Channel     string            `json:"channel"`
	SenderID    string            `json:"sender_id"`
	Body        string            `json:"body"`
	MessageID   string            `json:"message_id,omitempty"`
	ProfileName string            `json:"profile_name,omitempty"`
	Timestamp   time.Time         `json:"timestamp,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage is a reply to be delivered through a channel.
type OutboundMessage struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Body    string `json:"body"`
}

// Channel identifiers carried in messages and job payloads.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelTelegram = "telegram"
)

// MaskSender shortens a sender ID for logs: first 6 chars plus "***".
func MaskSender(id string) string {
	if len(id) <= 6 {
		return id + "***"
	}
	return id[:6] + "***"
}
