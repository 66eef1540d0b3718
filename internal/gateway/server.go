// Package gateway exposes the inbound HTTP surface: channel webhooks
// (WhatsApp and Telegram), admin endpoints for knowledge ingestion and
// job inspection, and health. Webhook handlers acknowledge fast and
// push the heavy work onto the job queue.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ventabot/ventabot/internal/channels"
	"github.com/ventabot/ventabot/internal/config"
	"github.com/ventabot/ventabot/internal/queue"
	"github.com/ventabot/ventabot/internal/rag"
	"github.com/ventabot/ventabot/internal/store"
)

// SignatureValidator checks the authenticity header of an inbound
// webhook against the raw form payload. Twilio's channel implements it.
type SignatureValidator interface {
	ValidateSignature(fullURL string, form url.Values, signature string) bool
}

// Server is the webhook HTTP server.
type Server struct {
	cfg           *config.Config
	version       string
	queue         queue.Queue
	conversations store.ConversationStore
	retriever     *rag.Retriever

	whatsapp  channels.Provider
	telegram  channels.Provider
	validator SignatureValidator
	limiter   *SenderLimiter

	httpServer *http.Server
}

// New builds a Server around the queue and conversation store. Channel
// providers are attached with the Set* methods; unset channels answer
// their webhook with an ignored status.
func New(cfg *config.Config, version string, q queue.Queue, conversations store.ConversationStore, retriever *rag.Retriever) *Server {
	return &Server{
		cfg:           cfg,
		version:       version,
		queue:         q,
		conversations: conversations,
		retriever:     retriever,
		limiter:       NewSenderLimiter(cfg.Server.RateLimitRPM),
	}
}

// SetWhatsAppProvider attaches the WhatsApp transport (Twilio or Evolution).
func (s *Server) SetWhatsAppProvider(p channels.Provider) { s.whatsapp = p }

// SetTelegramProvider attaches the Telegram transport.
func (s *Server) SetTelegramProvider(p channels.Provider) { s.telegram = p }

// SetSignatureValidator enables signature checks on the WhatsApp webhook.
func (s *Server) SetSignatureValidator(v SignatureValidator) { s.validator = v }

// BuildMux registers all HTTP routes.
func (s *Server) BuildMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook", s.handleWhatsAppWebhook)
	mux.HandleFunc("/webhook/whatsapp", s.handleWhatsAppWebhook)
	mux.HandleFunc("/webhook/telegram", s.handleTelegramWebhook)
	mux.HandleFunc("/admin/ingest", s.handleIngest)
	mux.HandleFunc("/admin/stats", s.handleStats)
	mux.HandleFunc("/admin/jobs/", s.handleJob)

	return mux
}

// Start runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("gateway starting", "addr", addr, "env", s.cfg.Env)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"env":     s.cfg.Env,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}
