package cmd

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ventabot/ventabot/internal/bus"
	"github.com/ventabot/ventabot/internal/channels"
	"github.com/ventabot/ventabot/internal/channels/evolution"
	"github.com/ventabot/ventabot/internal/channels/telegram"
	"github.com/ventabot/ventabot/internal/channels/twilio"
	"github.com/ventabot/ventabot/internal/config"
	"github.com/ventabot/ventabot/internal/pipeline"
	"github.com/ventabot/ventabot/internal/providers"
	"github.com/ventabot/ventabot/internal/queue"
	"github.com/ventabot/ventabot/internal/rag"
	"github.com/ventabot/ventabot/internal/store"
	"github.com/ventabot/ventabot/internal/store/pg"
	"github.com/ventabot/ventabot/internal/worker"
)

// application bundles the long-lived components shared by the serve and
// worker commands. Standalone mode (no Postgres DSN) runs everything
// in-process on in-memory backends; with Postgres, multiple processes
// share the queue and conversation store.
type application struct {
	cfg           *config.Config
	db            *sql.DB
	queue         queue.Queue
	conversations store.ConversationStore
	pgStore       *pg.ConversationStore
	retriever     *rag.Retriever
	processor     *worker.Processor

	whatsapp channels.Provider
	telegram *telegram.Channel
	twilio   *twilio.Channel

	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp() (*application, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &application{cfg: cfg}

	if cfg.UsesPostgres() {
		db, err := sql.Open("pgx", cfg.Queue.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, func() { db.Close() })
	}

	ttl := time.Duration(cfg.Store.TTL) * time.Second
	if a.db != nil {
		a.pgStore = pg.NewConversationStore(a.db, cfg.Store.WindowTurns, ttl)
		a.conversations = a.pgStore
	} else {
		mem := store.NewMemoryConversationStore(cfg.Store.WindowTurns, ttl)
		a.conversations = mem
		a.closers = append(a.closers, mem.Close)
	}

	opts := queue.Options{
		JobTimeout: time.Duration(cfg.Queue.JobTimeout) * time.Second,
		MaxRetries: cfg.Queue.MaxRetries,
		ResultTTL:  time.Duration(cfg.Queue.ResultTTL) * time.Second,
		FailureTTL: time.Duration(cfg.Queue.FailureTTL) * time.Second,
	}
	if a.db != nil {
		a.queue = queue.NewPostgresQueue(a.db, opts)
	} else {
		a.queue = queue.NewMemoryQueue(opts)
	}

	ragStore, err := rag.OpenStore(cfg.Knowledge.Path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	a.closers = append(a.closers, func() { ragStore.Close() })

	embedder := providers.NewOpenAIEmbedder(
		cfg.Providers.OpenAI.APIKey,
		cfg.Providers.OpenAI.APIBase,
		cfg.Providers.OpenAI.EmbeddingModel,
	)
	splitter := rag.NewSplitter(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	a.retriever = rag.NewRetriever(ragStore, embedder, splitter, cfg.Knowledge.TopK, cfg.Knowledge.MinScore)

	provider := providers.NewOpenAIProvider(
		cfg.Providers.OpenAI.APIKey,
		cfg.Providers.OpenAI.APIBase,
		cfg.Agents.Model,
	)
	crm := pipeline.NewCRMClient(cfg.CRM.APIURL, cfg.CRM.APIKey)
	orchestrator := pipeline.NewOrchestrator(provider, a.retriever, crm, pipeline.Options{
		Model:             cfg.Agents.Model,
		Temperature:       cfg.Agents.Temperature,
		MaxTokens:         cfg.Agents.MaxTokens,
		MaxToolIterations: cfg.Agents.MaxToolIterations,
		BusinessName:      cfg.Agents.BusinessName,
	})

	if err := a.buildChannels(); err != nil {
		return nil, err
	}

	outbound := map[string]channels.Provider{}
	if a.whatsapp != nil {
		outbound[bus.ChannelWhatsApp] = a.whatsapp
	}
	if a.telegram != nil {
		outbound[bus.ChannelTelegram] = a.telegram
	}
	a.processor = worker.NewProcessor(a.conversations, orchestrator, outbound)

	return a, nil
}

func (a *application) buildChannels() error {
	cfg := a.cfg

	switch cfg.Channels.WhatsAppProvider {
	case "twilio":
		tw := cfg.Channels.Twilio
		if tw.AccountSID == "" || tw.AuthToken == "" {
			slog.Warn("twilio selected but credentials missing, whatsapp disabled")
			break
		}
		ch, err := twilio.New(tw.AccountSID, tw.AuthToken, tw.FromNumber)
		if err != nil {
			return fmt.Errorf("twilio channel: %w", err)
		}
		a.whatsapp = ch
		a.twilio = ch
	case "evolution":
		ev := cfg.Channels.Evolution
		if ev.BaseURL == "" || ev.Instance == "" {
			slog.Warn("evolution selected but base_url or instance missing, whatsapp disabled")
			break
		}
		ch, err := evolution.New(ev.BaseURL, ev.Instance, ev.APIKey)
		if err != nil {
			return fmt.Errorf("evolution channel: %w", err)
		}
		a.whatsapp = ch
	case "":
		slog.Info("no whatsapp provider configured")
	default:
		return fmt.Errorf("unknown whatsapp provider %q", cfg.Channels.WhatsAppProvider)
	}

	if cfg.Channels.Telegram.Enabled {
		if cfg.Channels.Telegram.Token == "" {
			slog.Warn("telegram enabled but VENTABOT_TELEGRAM_TOKEN missing, telegram disabled")
			return nil
		}
		ch, err := telegram.New(cfg.Channels.Telegram.Token)
		if err != nil {
			return fmt.Errorf("telegram channel: %w", err)
		}
		a.telegram = ch
	}
	return nil
}
