// Package telegram adapts the Telegram Bot API via telego. Updates arrive
// through the webhook endpoint; replies go out as Markdown messages with a
// typing indicator first.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/ventabot/ventabot/internal/bus"
	"github.com/ventabot/ventabot/internal/channels"
)

// Channel is the Telegram transport.
type Channel struct {
	bot *telego.Bot
}

func New(token string) (*Channel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: token is required")
	}
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Channel{bot: bot}, nil
}

func (c *Channel) Name() string { return bus.ChannelTelegram }

func (c *Channel) SendText(ctx context.Context, to, body string) (channels.SendResult, error) {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return channels.SendResult{}, fmt.Errorf("telegram: bad chat id %q: %w", to, err)
	}

	msg, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), body).
		WithParseMode(telego.ModeMarkdown))
	if err != nil {
		return channels.SendResult{}, fmt.Errorf("telegram send: %w", err)
	}
	return channels.SendResult{
		MessageID: strconv.Itoa(msg.MessageID),
		Status:    "sent",
	}, nil
}

// SendTyping shows the typing indicator while the pipeline works.
// Best-effort: errors are ignored by callers.
func (c *Channel) SendTyping(ctx context.Context, to string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: bad chat id %q: %w", to, err)
	}
	return c.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping))
}

// SetWebhook registers url as the bot's update target.
func (c *Channel) SetWebhook(ctx context.Context, url string) error {
	if err := c.bot.SetWebhook(ctx, &telego.SetWebhookParams{URL: url}); err != nil {
		return fmt.Errorf("telegram set webhook: %w", err)
	}
	return nil
}

// WebhookInfo returns the currently registered webhook URL and its pending
// update count.
func (c *Channel) WebhookInfo(ctx context.Context) (string, int, error) {
	info, err := c.bot.GetWebhookInfo(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("telegram webhook info: %w", err)
	}
	return info.URL, info.PendingUpdateCount, nil
}

// ParseIncoming decodes a Bot API Update. Message, edited message and
// channel post updates carry text; anything else yields an empty body that
// the webhook layer ignores.
func (c *Channel) ParseIncoming(payload []byte) (bus.InboundMessage, error) {
	var update telego.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		return bus.InboundMessage{}, fmt.Errorf("telegram update: %w", err)
	}

	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil {
		return bus.InboundMessage{}, fmt.Errorf("telegram update: no message")
	}

	inbound := bus.InboundMessage{
		Channel:   bus.ChannelTelegram,
		SenderID:  strconv.FormatInt(msg.Chat.ID, 10),
		Body:      msg.Text,
		MessageID: strconv.Itoa(msg.MessageID),
		Timestamp: time.Unix(msg.Date, 0),
	}
	if msg.From != nil {
		inbound.ProfileName = profileName(msg.From)
	}
	return inbound, nil
}

// Command extracts a leading bot command ("/start", "/reset") from a
// message, stripping any @botname suffix. Empty when the message is not a
// command.
func Command(body string) string {
	if !strings.HasPrefix(body, "/") {
		return ""
	}
	cmd := strings.Fields(body)[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

func profileName(u *telego.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
