package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"roaming-recon/internal/bolt"
	"roaming-recon/internal/db"
	"roaming-recon/internal/lookup"
	"roaming-recon/internal/match"
)

const defaultConcurrency = 4

// ContractSource finds the contract governing an operator pair on a date.
type ContractSource interface {
	Query(ctx context.Context, hpmn, vpmn string, queryDate time.Time) (*lookup.Result, error)
}

// UsageSink persists attributed monthly usage rows.
type UsageSink interface {
	UpsertMonthly(ctx context.Context, rows []db.MonthlyRow) (int, error)
}

// FileStore is the idempotency registry for ingested files.
type FileStore interface {
	Seen(ctx context.Context, hash string) (bool, error)
	Record(ctx context.Context, hash, orgName string) (uuid.UUID, error)
}

// FileJob is one usage file ready to process, together with everything the
// watcher learned from its name and feed config.
type FileJob struct {
	Filename string
	Data     []byte
	FileUUID uuid.UUID

	OwnerPMN string
	FileType bolt.FileType

	SkipRows  int
	Mappings  []bolt.ServiceMapping
	Countries map[string]string
}

// Report summarizes one file run.
type Report struct {
	Records     int
	Pairs       int
	PairsNoDeal int
	RowsWritten int
}

// Flow processes one usage file end to end: read and clean the frame,
// transform to interchange records, split by operator pair, attribute each
// pair's records against the pair's contract, and persist the monthly rows.
type Flow struct {
	Contracts ContractSource
	Usage     UsageSink
	Logger    *zap.Logger

	// Concurrency bounds the number of operator pairs in flight.
	Concurrency int
}

// Run executes the flow for one file. Pairs without a contract are skipped;
// any other pair failure aborts the run.
func (f *Flow) Run(ctx context.Context, job FileJob) (*Report, error) {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("file", job.Filename))

	frame, err := bolt.ReadCSV(bytes.NewReader(job.Data), job.SkipRows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", job.Filename, err)
	}

	transform := &bolt.Transform{
		Mappings:  job.Mappings,
		OwnerPMN:  job.OwnerPMN,
		FileType:  job.FileType,
		Countries: job.Countries,
		Logger:    logger,
	}
	records, err := transform.Apply(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to transform %s: %w", job.Filename, err)
	}

	report := &Report{Records: len(records)}
	if len(records) == 0 {
		logger.Info("no chargeable records after transform")
		return report, nil
	}

	pairs, byPair := bolt.SplitByOperator(records)
	report.Pairs = len(pairs)

	limit := f.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			written, skipped, err := f.processPair(ctx, logger, job, pair, byPair[pair])
			if err != nil {
				return err
			}
			mu.Lock()
			if skipped {
				report.PairsNoDeal++
			}
			report.RowsWritten += written
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("file processed",
		zap.Int("records", report.Records),
		zap.Int("pairs", report.Pairs),
		zap.Int("pairs_without_deal", report.PairsNoDeal),
		zap.Int("rows_written", report.RowsWritten))
	return report, nil
}

// processPair attributes and persists one operator pair's records. A pair
// without a contract, or without a readable call month to query one for, is
// reported as skipped rather than failed.
func (f *Flow) processPair(ctx context.Context, logger *zap.Logger, job FileJob, pair bolt.PMNPair, group []bolt.Record) (int, bool, error) {
	logger = logger.With(zap.String("hpmn", pair.HomePMN), zap.String("vpmn", pair.VisitorPMN))

	queryDate, err := representativeDate(group)
	if err != nil {
		logger.Warn("skipping pair, no usable call month", zap.Error(err))
		return 0, true, nil
	}

	result, err := f.Contracts.Query(ctx, pair.HomePMN, pair.VisitorPMN, queryDate)
	if errors.Is(err, lookup.ErrNoContract) {
		logger.Info("no contract for operator pair", zap.Time("query_date", queryDate))
		return 0, true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("contract lookup for %s/%s: %w", pair.HomePMN, pair.VisitorPMN, err)
	}

	mapper := match.NewMapper(result.Deal)
	matches, err := mapper.MapAll(matchRecords(group))
	if err != nil {
		return 0, false, fmt.Errorf("failed to attribute %s/%s: %w", pair.HomePMN, pair.VisitorPMN, err)
	}

	contractUUID := result.ContractUUID
	rows := make([]db.MonthlyRow, 0, len(group))
	for i, rec := range group {
		callMonth, err := bolt.ParseRecordDate(rec.Date)
		if err != nil {
			logger.Warn("skipping record with unreadable date", zap.String("date", rec.Date))
			continue
		}
		rows = append(rows, db.MonthlyRow{
			FileUUID:       job.FileUUID,
			ContractUUID:   &contractUUID,
			ServiceUUID:    matches[i].ServiceUUID,
			CommitmentUUID: matches[i].CommitmentUUID,
			TapUUID:        matches[i].TapUUID,
			Date:           callMonth,
			Volume:         rec.VolumeCharged,
			ServiceType:    rec.ServiceType,
			HPMN:           rec.HomePMN,
			VPMN:           rec.VisitorPMN,
		})
	}

	written, err := f.Usage.UpsertMonthly(ctx, rows)
	if err != nil {
		return 0, false, fmt.Errorf("failed to persist %s/%s: %w", pair.HomePMN, pair.VisitorPMN, err)
	}
	return written, false, nil
}

// representativeDate picks the call month the contract lookup is made for:
// the last distinct date appearing in the group.
func representativeDate(group []bolt.Record) (time.Time, error) {
	last := ""
	seen := make(map[string]struct{})
	for _, rec := range group {
		if _, ok := seen[rec.Date]; ok {
			continue
		}
		seen[rec.Date] = struct{}{}
		last = rec.Date
	}
	return bolt.ParseRecordDate(last)
}

func matchRecords(group []bolt.Record) []match.Record {
	out := make([]match.Record, len(group))
	for i, rec := range group {
		out[i] = rec.Record
	}
	return out
}
