package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ventabot/ventabot/internal/gateway"
)

var (
	serveWithWorkers   bool
	serveWorkers       int
	telegramWebhookURL string
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long:  "Runs the webhook HTTP server. In standalone mode (no Postgres) the worker pool runs embedded; with Postgres, pass --with-workers or run separate worker processes.",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&serveWithWorkers, "with-workers", false, "run the worker pool inside the server process")
	cmd.Flags().IntVar(&serveWorkers, "workers", 0, "embedded worker goroutines (default: config queue.workers)")
	cmd.Flags().StringVar(&telegramWebhookURL, "telegram-webhook-url", "", "register this URL as the Telegram webhook on startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := gateway.New(a.cfg, Version, a.queue, a.conversations, a.retriever)
	if a.whatsapp != nil {
		srv.SetWhatsAppProvider(a.whatsapp)
	}
	if a.telegram != nil {
		srv.SetTelegramProvider(a.telegram)
		if telegramWebhookURL != "" {
			if err := a.telegram.SetWebhook(ctx, telegramWebhookURL); err != nil {
				slog.Error("telegram webhook registration failed", "error", err)
			} else {
				slog.Info("telegram webhook registered", "url", telegramWebhookURL)
			}
		}
	}
	if a.twilio != nil && a.cfg.Channels.Twilio.ValidateSignature {
		srv.SetSignatureValidator(a.twilio)
	}

	// The in-memory queue only exists in this process, so jobs must be
	// worked here too.
	embedWorkers := serveWithWorkers || !a.cfg.UsesPostgres()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	if embedWorkers {
		workers := serveWorkers
		if workers <= 0 {
			workers = a.cfg.Queue.Workers
		}
		g.Go(func() error {
			slog.Info("worker pool starting", "workers", workers)
			return a.queue.Run(ctx, workers, a.processor.Handle)
		})
	}
	if a.pgStore != nil {
		g.Go(func() error {
			return sweepConversations(ctx, a)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// sweepConversations periodically deletes expired conversation rows.
// Only needed with Postgres; the in-memory store sweeps itself.
func sweepConversations(ctx context.Context, a *application) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := a.pgStore.SweepExpired(ctx)
			if err != nil {
				slog.Error("conversation sweep failed", "error", err)
			} else if n > 0 {
				slog.Debug("conversations swept", "deleted", n)
			}
		}
	}
}
