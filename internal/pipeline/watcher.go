package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"roaming-recon/internal/bolt"
)

const dialTimeout = 10 * time.Second

// Watcher polls one feed's FTP drop directory and runs the flow over every
// file it has not seen before.
type Watcher struct {
	feed   FeedConfig
	flow   *Flow
	files  FileStore
	logger *zap.Logger

	filePattern     *regexp.Regexp
	homePattern     *regexp.Regexp
	visitingPattern *regexp.Regexp
}

func NewWatcher(feed FeedConfig, flow *Flow, files FileStore, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	applyDefaults(&feed)

	w := &Watcher{
		feed:   feed,
		flow:   flow,
		files:  files,
		logger: logger.With(zap.String("feed", feed.OrgName)),
	}

	var err error
	if w.filePattern, err = regexp.Compile(feed.FilePattern); err != nil {
		return nil, fmt.Errorf("invalid file_pattern: %w", err)
	}
	if feed.HomeFilePattern != "" {
		if w.homePattern, err = regexp.Compile(feed.HomeFilePattern); err != nil {
			return nil, fmt.Errorf("invalid home_file_pattern: %w", err)
		}
	}
	if feed.VisitingFilePattern != "" {
		if w.visitingPattern, err = regexp.Compile(feed.VisitingFilePattern); err != nil {
			return nil, fmt.Errorf("invalid visiting_file_pattern: %w", err)
		}
	}
	return w, nil
}

// Watch polls the feed until the context is cancelled. Poll failures are
// logged and retried on the next tick.
func (w *Watcher) Watch(ctx context.Context) error {
	w.logger.Info("starting watcher",
		zap.String("addr", w.feed.FTP.Addr()),
		zap.String("remote_dir", w.feed.FTP.RemoteDir),
		zap.Int("poll_interval", w.feed.PollInterval))

	ticker := time.NewTicker(time.Duration(w.feed.PollInterval) * time.Second)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil {
			w.logger.Error("poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	conn, err := w.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	names, err := conn.NameList("")
	if err != nil {
		return fmt.Errorf("failed to list remote directory: %w", err)
	}
	w.logger.Debug("polled remote directory", zap.Int("files", len(names)))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasSuffix(strings.ToLower(name), ".csv") {
			continue
		}
		if !w.filePattern.MatchString(name) {
			w.logger.Debug("filename does not match feed pattern", zap.String("file", name))
			continue
		}
		if err := w.processRemoteFile(ctx, conn, name); err != nil {
			w.logger.Error("failed to process file", zap.String("file", name), zap.Error(err))
		}
	}
	return nil
}

func (w *Watcher) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(w.feed.FTP.Addr(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(dialTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", w.feed.FTP.Addr(), err)
	}
	if err := conn.Login(w.feed.FTP.User, w.feed.FTP.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("failed to log in as %s: %w", w.feed.FTP.User, err)
	}
	if w.feed.FTP.RemoteDir != "" {
		if err := conn.ChangeDir(w.feed.FTP.RemoteDir); err != nil {
			conn.Quit()
			return nil, fmt.Errorf("failed to enter %s: %w", w.feed.FTP.RemoteDir, err)
		}
	}
	return conn, nil
}

func (w *Watcher) processRemoteFile(ctx context.Context, conn *ftp.ServerConn, name string) error {
	data, err := download(conn, name)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	seen, err := w.files.Seen(ctx, hash)
	if err != nil {
		return err
	}
	if seen {
		w.logger.Debug("file already processed", zap.String("file", name), zap.String("hash", hash[:8]))
		return nil
	}

	fileUUID, err := w.files.Record(ctx, hash, w.feed.OrgName)
	if err != nil {
		return err
	}

	job := FileJob{
		Filename:  w.feed.OrgName + "/" + name,
		Data:      data,
		FileUUID:  fileUUID,
		OwnerPMN:  w.OwnerPMN(name),
		FileType:  w.Classify(name),
		SkipRows:  w.feed.SkipRows,
		Mappings:  w.feed.ServiceMappings,
		Countries: w.feed.Countries,
	}
	if job.FileType == bolt.FileTypeUnknown {
		w.logger.Warn("could not determine file type", zap.String("file", name))
	}
	if job.OwnerPMN == "" {
		w.logger.Warn("could not extract PMN code from filename", zap.String("file", name))
	}

	report, err := w.flow.Run(ctx, job)
	if err != nil {
		return err
	}
	w.logger.Info("new file ingested",
		zap.String("file", name),
		zap.String("hash", hash[:8]),
		zap.Int("rows_written", report.RowsWritten))
	return nil
}

func download(conn *ftp.ServerConn, name string) ([]byte, error) {
	resp, err := conn.Retr(name)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Classify decides which side of the roaming relationship the file reports
// from its name.
func (w *Watcher) Classify(name string) bolt.FileType {
	if w.homePattern != nil && w.homePattern.MatchString(name) {
		return bolt.FileTypeHome
	}
	if w.visitingPattern != nil && w.visitingPattern.MatchString(name) {
		return bolt.FileTypeVisiting
	}
	return bolt.FileTypeUnknown
}

// OwnerPMN extracts the file owner's PMN code from the filename: the
// underscore-separated token at the configured position, truncated to the
// configured length.
func (w *Watcher) OwnerPMN(name string) string {
	parts := strings.Split(name, "_")
	if w.feed.PMNCodeLocation >= len(parts) {
		return ""
	}
	code := parts[w.feed.PMNCodeLocation]
	if len(code) > w.feed.PMNCodeLength {
		code = code[:w.feed.PMNCodeLength]
	}
	return code
}

// WatchAll runs one watcher per feed concurrently until the context is
// cancelled or a watcher fails to start.
func WatchAll(ctx context.Context, feeds []FeedConfig, flow *Flow, files FileStore, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		w, err := NewWatcher(feed, flow, files, logger)
		if err != nil {
			return fmt.Errorf("feed %s: %w", feed.OrgName, err)
		}
		g.Go(func() error {
			return w.Watch(ctx)
		})
	}
	return g.Wait()
}
