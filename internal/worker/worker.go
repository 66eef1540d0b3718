// Package worker processes queued inbound messages: load conversation
// history, run the agent pipeline, deliver the reply, record the turns.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ventabot/ventabot/internal/bus"
	"github.com/ventabot/ventabot/internal/channels"
	"github.com/ventabot/ventabot/internal/pipeline"
	"github.com/ventabot/ventabot/internal/store"
)

// TypingNotifier is implemented by channels that can show a typing
// indicator while the pipeline runs.
type TypingNotifier interface {
	SendTyping(ctx context.Context, to string) error
}

// Processor executes one job end to end.
type Processor struct {
	conversations store.ConversationStore
	orchestrator  *pipeline.Orchestrator
	providers     map[string]channels.Provider
}

func NewProcessor(conversations store.ConversationStore, orchestrator *pipeline.Orchestrator, providers map[string]channels.Provider) *Processor {
	return &Processor{
		conversations: conversations,
		orchestrator:  orchestrator,
		providers:     providers,
	}
}

// Handle is the queue.Handler adapter: payloads are bus.InboundMessage JSON.
func (p *Processor) Handle(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var msg bus.InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	return p.Process(ctx, msg), nil
}

// Process runs the pipeline for one message and returns the job result.
// Failures after the pipeline (sending, history writes) are recorded in
// the result instead of failing the job: the pipeline already produced a
// reply or an apology, and re-running it would double-message the customer.
func (p *Processor) Process(ctx context.Context, msg bus.InboundMessage) map[string]interface{} {
	if msg.Body == "" {
		return map[string]interface{}{"status": "ignored", "reason": "empty_body"}
	}

	sender := bus.MaskSender(msg.SenderID)
	slog.Info("processing message", "channel", msg.Channel, "sender", sender)

	key := store.ConversationKey(msg.SenderID)
	history, err := p.conversations.History(ctx, key)
	if err != nil {
		// Degrade to an empty history rather than dropping the message.
		slog.Warn("history unavailable", "sender", sender, "error", err)
		history = ""
	}

	provider := p.providers[msg.Channel]
	if tn, ok := provider.(TypingNotifier); ok {
		if err := tn.SendTyping(ctx, msg.SenderID); err != nil {
			slog.Debug("typing indicator failed", "sender", sender, "error", err)
		}
	}

	result := p.orchestrator.Run(ctx, msg.Body, history, msg.ProfileName)

	out := map[string]interface{}{
		"status":        "done",
		"channel":       msg.Channel,
		"intent_type":   result.IntentType,
		"response_sent": channels.Truncate(result.FinalResponse, 200),
	}

	if provider == nil {
		out["send_error"] = fmt.Sprintf("no provider for channel %q", msg.Channel)
		slog.Error("no channel provider", "channel", msg.Channel)
		return out
	}

	sendRes, err := channels.SendWithRetry(ctx, provider, msg.SenderID, result.FinalResponse)
	if err != nil {
		out["send_error"] = err.Error()
		slog.Error("reply delivery failed", "channel", msg.Channel, "sender", sender, "error", err)
	} else {
		out["send_result"] = sendRes
	}

	if err := p.conversations.AppendTurn(ctx, key, store.RoleCustomer, msg.Body); err != nil {
		slog.Warn("append customer turn failed", "sender", sender, "error", err)
	}
	if err := p.conversations.AppendTurn(ctx, key, store.RoleAgent, result.FinalResponse); err != nil {
		slog.Warn("append agent turn failed", "sender", sender, "error", err)
	}

	slog.Info("message processed", "channel", msg.Channel, "sender", sender, "intent", result.IntentType)
	return out
}
