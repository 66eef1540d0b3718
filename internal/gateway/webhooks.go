package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ventabot/ventabot/internal/bus"
	"github.com/ventabot/ventabot/internal/channels"
	"github.com/ventabot/ventabot/internal/channels/telegram"
	"github.com/ventabot/ventabot/internal/store"
)

// ResetReply confirms a cleared conversation.
const ResetReply = "Conversación reiniciada. ¿En qué te puedo ayudar?"

// maxWebhookBody caps inbound payload reads. Chat webhooks are small;
// anything past this is not a message we want.
const maxWebhookBody = 1 << 20

var resetCommands = map[string]bool{
	"cancelar":  true,
	"reset":     true,
	"reiniciar": true,
}

func isResetCommand(body string) bool {
	return resetCommands[strings.ToLower(strings.TrimSpace(body))]
}

func (s *Server) handleWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleVerification(w, r)
	case http.MethodPost:
		s.handleWhatsAppInbound(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerification answers the Meta-style subscription handshake:
// echo hub.challenge as plain text when the verify token matches.
func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token == "" || token != s.cfg.Server.VerifyToken {
		slog.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, challenge)
}

func (s *Server) handleWhatsAppInbound(w http.ResponseWriter, r *http.Request) {
	if s.whatsapp == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ignored",
			"reason": "channel_disabled",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "parse_error",
			"detail": "read body: " + err.Error(),
		})
		return
	}

	if s.validator != nil {
		form, err := url.ParseQuery(string(body))
		if err != nil || !s.validator.ValidateSignature(requestURL(r), form, r.Header.Get("X-Twilio-Signature")) {
			slog.Warn("webhook signature rejected", "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"status": "forbidden"})
			return
		}
	}

	msg, err := s.whatsapp.ParseIncoming(body)
	if err != nil {
		// A malformed payload is not the sender's fault and not
		// retryable: acknowledge it so the channel stops redelivering.
		slog.Warn("webhook parse failed", "channel", "whatsapp", "error", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "parse_error",
			"detail": err.Error(),
		})
		return
	}

	s.dispatch(r.Context(), w, msg, s.whatsapp)
}

func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.telegram == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ignored",
			"reason": "channel_disabled",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "parse_error",
			"detail": "read body: " + err.Error(),
		})
		return
	}

	msg, err := s.telegram.ParseIncoming(body)
	if err != nil {
		// Edited stickers, reactions, member updates: not messages,
		// nothing to do. Telegram expects a 200 either way.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ignored",
			"reason": "no_message",
		})
		return
	}

	switch telegram.Command(msg.Body) {
	case "/start":
		greeting := fmt.Sprintf("¡Hola! Soy el asistente virtual de %s. Pregúntame por productos, precios o soporte técnico.", s.cfg.Agents.BusinessName)
		s.replyCommand(r.Context(), w, msg, greeting)
	case "/help":
		s.replyCommand(r.Context(), w, msg, "Puedo ayudarte con consultas de ventas y soporte técnico. Escribe tu pregunta, o envía /reset para reiniciar la conversación.")
	case "/reset":
		s.resetConversation(r.Context(), w, msg, s.telegram)
	default:
		s.dispatch(r.Context(), w, msg, s.telegram)
	}
}

// dispatch is the shared tail of every inbound message: drop empties,
// rate limit, honor reset keywords, then enqueue for the workers.
func (s *Server) dispatch(ctx context.Context, w http.ResponseWriter, msg bus.InboundMessage, replyVia channels.Provider) {
	if strings.TrimSpace(msg.Body) == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ignored",
			"reason": "empty_body",
		})
		return
	}

	if !s.limiter.Allow(msg.SenderID) {
		slog.Warn("webhook rate limited", "channel", msg.Channel, "sender", bus.MaskSender(msg.SenderID))
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "rate_limited"})
		return
	}

	if isResetCommand(msg.Body) {
		s.resetConversation(ctx, w, msg, replyVia)
		return
	}

	id, err := s.queue.Enqueue(ctx, msg)
	if err != nil {
		slog.Error("enqueue failed", "channel", msg.Channel, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "error",
			"detail": "queue unavailable",
		})
		return
	}

	slog.Info("message queued",
		"channel", msg.Channel,
		"sender", bus.MaskSender(msg.SenderID),
		"job_id", id,
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "queued",
		"job_id": id.String(),
	})
}

func (s *Server) resetConversation(ctx context.Context, w http.ResponseWriter, msg bus.InboundMessage, replyVia channels.Provider) {
	if err := s.conversations.Clear(ctx, store.ConversationKey(msg.SenderID)); err != nil {
		slog.Error("conversation clear failed", "sender", bus.MaskSender(msg.SenderID), "error", err)
	}
	if replyVia != nil {
		if _, err := replyVia.SendText(ctx, msg.SenderID, ResetReply); err != nil {
			slog.Error("reset reply failed", "channel", msg.Channel, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "reset"})
}

func (s *Server) replyCommand(ctx context.Context, w http.ResponseWriter, msg bus.InboundMessage, text string) {
	if _, err := s.telegram.SendText(ctx, msg.SenderID, text); err != nil {
		slog.Error("command reply failed", "channel", msg.Channel, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "command"})
}

// requestURL reconstructs the externally visible URL Twilio signed.
// Behind a proxy the scheme arrives in X-Forwarded-Proto.
func requestURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
