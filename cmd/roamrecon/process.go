package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"roaming-recon/internal/bolt"
	"roaming-recon/internal/db"
	"roaming-recon/internal/logging"
	"roaming-recon/internal/lookup"
	"roaming-recon/internal/pipeline"
)

var (
	processConfig   string
	processFeed     string
	processFileType string
	processPMN      string
	processSkipRows int
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Process one usage file from disk",
	Long: `Process runs the ingestion flow once over a local CSV file: clean,
transform to interchange records, attribute each operator pair's usage
against its contract, and upsert the monthly volumes.

File type and owner PMN are derived from the filename using the feed's
patterns unless given explicitly.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processConfig, "config", "configs", "directory of feed config files")
	processCmd.Flags().StringVar(&processFeed, "feed", "", "org name of the feed to use (defaults to the only configured feed)")
	processCmd.Flags().StringVar(&processFileType, "file-type", "", "home or visiting (derived from the filename when empty)")
	processCmd.Flags().StringVar(&processPMN, "pmn", "", "file owner's PMN code (derived from the filename when empty)")
	processCmd.Flags().IntVar(&processSkipRows, "skip-rows", -1, "preamble rows before the header (the feed's value when negative)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	logger, err := logging.FromEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()

	feed, err := selectFeed(processConfig, processFeed)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	ctx := cmd.Context()
	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer pool.Close()

	registry := db.NewFileRegistry(pool)
	flow := &pipeline.Flow{
		Contracts: lookup.NewClient(os.Getenv("CONTRACTS_BASE_URL"), nil, logger),
		Usage:     db.NewUsageStore(pool),
		Logger:    logger,
	}

	// The watcher already knows how to read this feed's filenames.
	watcher, err := pipeline.NewWatcher(feed, flow, registry, logger)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	seen, err := registry.Seen(ctx, hash)
	if err != nil {
		return err
	}
	if seen {
		logger.Info("file already processed", zap.String("hash", hash[:8]))
		return nil
	}
	fileUUID, err := registry.Record(ctx, hash, feed.OrgName)
	if err != nil {
		return err
	}

	name := filepath.Base(args[0])
	job := pipeline.FileJob{
		Filename:  feed.OrgName + "/" + name,
		Data:      data,
		FileUUID:  fileUUID,
		OwnerPMN:  processPMN,
		FileType:  bolt.FileType(processFileType),
		SkipRows:  feed.SkipRows,
		Mappings:  feed.ServiceMappings,
		Countries: feed.Countries,
	}
	if processPMN == "" {
		job.OwnerPMN = watcher.OwnerPMN(name)
	}
	switch processFileType {
	case "":
		job.FileType = watcher.Classify(name)
	case string(bolt.FileTypeHome), string(bolt.FileTypeVisiting):
	default:
		return fmt.Errorf("file-type must be home or visiting, got %q", processFileType)
	}
	if processSkipRows >= 0 {
		job.SkipRows = processSkipRows
	}

	report, err := flow.Run(ctx, job)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d records across %d operator pairs (%d without a deal), %d monthly rows written\n",
		name, report.Records, report.Pairs, report.PairsNoDeal, report.RowsWritten)
	return nil
}

func selectFeed(configDir, orgName string) (pipeline.FeedConfig, error) {
	feeds, err := pipeline.DiscoverFeeds(configDir)
	if err != nil {
		return pipeline.FeedConfig{}, err
	}
	if len(feeds) == 0 {
		return pipeline.FeedConfig{}, fmt.Errorf("no feeds configured in %s", configDir)
	}
	if orgName == "" {
		if len(feeds) == 1 {
			return feeds[0], nil
		}
		return pipeline.FeedConfig{}, fmt.Errorf("%d feeds configured, pick one with --feed", len(feeds))
	}
	for _, feed := range feeds {
		if feed.OrgName == orgName {
			return feed, nil
		}
	}
	return pipeline.FeedConfig{}, fmt.Errorf("no feed named %q in %s", orgName, configDir)
}
