// Package evolution talks to an Evolution API instance, the self-hosted
// WhatsApp gateway.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ventabot/ventabot/internal/bus"
	"github.com/ventabot/ventabot/internal/channels"
)

// Channel is the Evolution API WhatsApp transport.
type Channel struct {
	baseURL  string
	instance string
	apiKey   string
	client   *http.Client
}

func New(baseURL, instance, apiKey string) (*Channel, error) {
	if baseURL == "" || instance == "" {
		return nil, fmt.Errorf("evolution: base url and instance are required")
	}
	return &Channel{
		baseURL:  strings.TrimRight(baseURL, "/"),
		instance: instance,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *Channel) Name() string { return bus.ChannelWhatsApp }

func (c *Channel) SendText(ctx context.Context, to, body string) (channels.SendResult, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"number": to,
		"text":   body,
	})
	if err != nil {
		return channels.SendResult{}, fmt.Errorf("evolution: marshal send: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return channels.SendResult{}, fmt.Errorf("evolution: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return channels.SendResult{}, fmt.Errorf("evolution send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return channels.SendResult{}, fmt.Errorf("evolution send: http %d: %s", resp.StatusCode, respBody)
	}

	var sent struct {
		Key struct {
			ID string `json:"id"`
		} `json:"key"`
	}
	json.NewDecoder(resp.Body).Decode(&sent)

	return channels.SendResult{MessageID: sent.Key.ID, Status: "sent"}, nil
}

// webhookEvent is the Evolution messages.upsert webhook shape.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
		MessageTimestamp int64 `json:"messageTimestamp"`
	} `json:"data"`
}

// ParseIncoming decodes an Evolution webhook event. The sender JID is
// stripped of its @s.whatsapp.net / @g.us suffix.
func (c *Channel) ParseIncoming(payload []byte) (bus.InboundMessage, error) {
	var ev webhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return bus.InboundMessage{}, fmt.Errorf("evolution webhook: %w", err)
	}

	jid := ev.Data.Key.RemoteJid
	if jid == "" {
		return bus.InboundMessage{}, fmt.Errorf("evolution webhook: missing remoteJid")
	}
	sender := strings.TrimSuffix(strings.TrimSuffix(jid, "@s.whatsapp.net"), "@g.us")

	body := ev.Data.Message.Conversation
	if body == "" {
		body = ev.Data.Message.ExtendedTextMessage.Text
	}

	msg := bus.InboundMessage{
		Channel:     bus.ChannelWhatsApp,
		SenderID:    sender,
		Body:        body,
		MessageID:   ev.Data.Key.ID,
		ProfileName: ev.Data.PushName,
	}
	if ev.Data.MessageTimestamp > 0 {
		msg.Timestamp = time.Unix(ev.Data.MessageTimestamp, 0)
	}
	return msg, nil
}
