// Package twilio delivers and parses WhatsApp messages through the Twilio
// Messaging API.
package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/ventabot/ventabot/internal/bus"
	"github.com/ventabot/ventabot/internal/channels"
)

const whatsappPrefix = "whatsapp:"

// Channel is the Twilio WhatsApp transport.
type Channel struct {
	client    *twilio.RestClient
	from      string
	authToken string
}

func New(accountSID, authToken, fromNumber string) (*Channel, error) {
	if accountSID == "" || authToken == "" || fromNumber == "" {
		return nil, fmt.Errorf("twilio: account sid, auth token and from number are required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Channel{client: client, from: fromNumber, authToken: authToken}, nil
}

func (c *Channel) Name() string { return bus.ChannelWhatsApp }

func (c *Channel) SendText(ctx context.Context, to, body string) (channels.SendResult, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(whatsappPrefix + c.from)
	params.SetTo(whatsappPrefix + to)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return channels.SendResult{}, fmt.Errorf("twilio send: %w", err)
	}

	res := channels.SendResult{Status: "sent"}
	if resp.Sid != nil {
		res.MessageID = *resp.Sid
	}
	return res, nil
}

// ParseIncoming decodes a Twilio form-encoded webhook body.
func (c *Channel) ParseIncoming(payload []byte) (bus.InboundMessage, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return bus.InboundMessage{}, fmt.Errorf("twilio webhook: %w", err)
	}

	from := strings.TrimPrefix(values.Get("From"), whatsappPrefix)
	if from == "" {
		return bus.InboundMessage{}, fmt.Errorf("twilio webhook: missing From")
	}

	return bus.InboundMessage{
		Channel:     bus.ChannelWhatsApp,
		SenderID:    from,
		Body:        values.Get("Body"),
		MessageID:   values.Get("MessageSid"),
		ProfileName: values.Get("ProfileName"),
	}, nil
}

// ValidateSignature checks the X-Twilio-Signature header: base64 HMAC-SHA1
// of the full URL plus the sorted form parameters, keyed by the auth token.
func (c *Channel) ValidateSignature(fullURL string, form url.Values, signature string) bool {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(c.authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
