package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"roaming-recon/internal/db"
	"roaming-recon/internal/logging"
	"roaming-recon/internal/lookup"
	"roaming-recon/internal/pipeline"
)

var watchConfig string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll every configured FTP feed for new usage files",
	Long: `Watch starts one FTP poller per configured feed. Each poller lists the
feed's drop directory on its interval, downloads files matching the feed's
pattern, skips files whose hash has been seen before, and runs the ingestion
flow over the rest. It stops on SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchConfig, "config", "configs", "directory of feed config files")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger, err := logging.FromEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()

	feeds, err := pipeline.DiscoverFeeds(watchConfig)
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds configured in %s", watchConfig)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer pool.Close()

	flow := &pipeline.Flow{
		Contracts: lookup.NewClient(os.Getenv("CONTRACTS_BASE_URL"), nil, logger),
		Usage:     db.NewUsageStore(pool),
		Logger:    logger,
	}

	err = pipeline.WatchAll(ctx, feeds, flow, db.NewFileRegistry(pool), logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
