package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCount int

func workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a standalone worker pool",
		Long:  "Runs workers that claim jobs from the shared Postgres queue. Requires VENTABOT_POSTGRES_DSN; in standalone mode the server embeds its own workers.",
		RunE:  runWorker,
	}
	cmd.Flags().IntVar(&workerCount, "workers", 0, "worker goroutines (default: config queue.workers)")
	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	setupLogging()

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.UsesPostgres() {
		return fmt.Errorf("worker needs a shared queue: set VENTABOT_POSTGRES_DSN or run `ventabot serve` standalone")
	}

	workers := workerCount
	if workers <= 0 {
		workers = a.cfg.Queue.Workers
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker pool starting", "workers", workers)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.queue.Run(ctx, workers, a.processor.Handle)
	})
	g.Go(func() error {
		return sweepConversations(ctx, a)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
