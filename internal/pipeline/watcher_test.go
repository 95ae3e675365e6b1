package pipeline_test

import (
	"testing"

	"roaming-recon/internal/bolt"
	"roaming-recon/internal/pipeline"
)

func testFeed() pipeline.FeedConfig {
	return pipeline.FeedConfig{
		OrgName:             "NGC",
		FilePattern:         "^(.*_MFS_.*)$",
		HomeFilePattern:     ".*_PAY_.*",
		VisitingFilePattern: ".*_REC_.*",
		PMNCodeLocation:     0,
		PMNCodeLength:       5,
	}
}

func newTestWatcher(t *testing.T, feed pipeline.FeedConfig) *pipeline.Watcher {
	t.Helper()
	w, err := pipeline.NewWatcher(feed, &pipeline.Flow{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return w
}

func TestWatcher_Classify(t *testing.T) {
	w := newTestWatcher(t, testFeed())

	tests := []struct {
		name     string
		filename string
		want     bolt.FileType
	}{
		{"payment file is home", "WSMDP_MFS_PAY_202505.csv", bolt.FileTypeHome},
		{"receivable file is visiting", "WSMDP_MFS_REC_202505.csv", bolt.FileTypeVisiting},
		{"neither pattern", "WSMDP_MFS_SUM_202505.csv", bolt.FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Classify(tt.filename); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestWatcher_ClassifyWithoutPatterns(t *testing.T) {
	feed := testFeed()
	feed.HomeFilePattern = ""
	feed.VisitingFilePattern = ""
	w := newTestWatcher(t, feed)

	if got := w.Classify("WSMDP_MFS_PAY_202505.csv"); got != bolt.FileTypeUnknown {
		t.Errorf("Classify without patterns = %q, want unknown", got)
	}
}

func TestWatcher_OwnerPMN(t *testing.T) {
	tests := []struct {
		name     string
		location int
		length   int
		filename string
		want     string
	}{
		{"first token", 0, 5, "WSMDP_MFS_PAY_202505.csv", "WSMDP"},
		{"token longer than code", 0, 5, "WSMDP01_MFS_PAY.csv", "WSMDP"},
		{"second token", 1, 3, "WSMDP_MFS_PAY.csv", "MFS"},
		{"location beyond tokens", 6, 5, "WSMDP_MFS_PAY.csv", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := testFeed()
			feed.PMNCodeLocation = tt.location
			feed.PMNCodeLength = tt.length
			w := newTestWatcher(t, feed)

			if got := w.OwnerPMN(tt.filename); got != tt.want {
				t.Errorf("OwnerPMN(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestNewWatcher_RejectsBadPatterns(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pipeline.FeedConfig)
	}{
		{"file pattern", func(c *pipeline.FeedConfig) { c.FilePattern = "(" }},
		{"home pattern", func(c *pipeline.FeedConfig) { c.HomeFilePattern = "(" }},
		{"visiting pattern", func(c *pipeline.FeedConfig) { c.VisitingFilePattern = "(" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := testFeed()
			tt.mutate(&feed)
			if _, err := pipeline.NewWatcher(feed, &pipeline.Flow{}, nil, nil); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
