package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"roaming-recon/internal/bolt"
)

const (
	defaultFTPPort      = 21
	defaultPollInterval = 10
	defaultPMNLength    = 5
)

// FTPConfig locates the delivery server for one feed.
type FTPConfig struct {
	Host      string `hcl:"host"`
	Port      int    `hcl:"port,optional"`
	User      string `hcl:"user"`
	Password  string `hcl:"password,optional"`
	RemoteDir string `hcl:"remote_dir,optional"`
}

// Addr returns the dialable host:port of the feed's FTP server.
func (c FTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FeedConfig describes one operator feed: where its files arrive, how to
// recognize and classify them, and how to read their columns.
type FeedConfig struct {
	OrgName string `hcl:"org_name,label"`

	FTP FTPConfig `hcl:"ftp,block"`

	// FilePattern selects the feed's files among everything in the drop
	// directory; the home and visiting patterns then classify each file.
	FilePattern         string `hcl:"file_pattern"`
	HomeFilePattern     string `hcl:"home_file_pattern,optional"`
	VisitingFilePattern string `hcl:"visiting_file_pattern,optional"`

	// The file owner's PMN code is the underscore-separated filename token
	// at PMNCodeLocation, truncated to PMNCodeLength characters.
	PMNCodeLocation int `hcl:"pmn_code_location,optional"`
	PMNCodeLength   int `hcl:"pmn_code_length,optional"`

	// SkipRows is the number of preamble rows before the header.
	SkipRows     int `hcl:"skip_rows,optional"`
	PollInterval int `hcl:"poll_interval,optional"`

	// Countries maps the feed's country display names to ISO-3166 alpha-3
	// codes, for files that carry no ready-made ISO column.
	Countries map[string]string `hcl:"countries,optional"`

	ServiceMappings []bolt.ServiceMapping `hcl:"service_mapping,block"`
}

type feedFile struct {
	Feeds []FeedConfig `hcl:"feed,block"`
}

// LoadFeeds reads every feed block from one HCL config file, applying
// defaults and validating each feed.
func LoadFeeds(path string) ([]FeedConfig, error) {
	var file feedFile
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	for i := range file.Feeds {
		applyDefaults(&file.Feeds[i])
		if err := file.Feeds[i].Validate(); err != nil {
			return nil, fmt.Errorf("config %s: feed %q: %w", path, file.Feeds[i].OrgName, err)
		}
	}
	return file.Feeds, nil
}

// DiscoverFeeds loads the feeds of every *.hcl file directly under dir, in
// filename order.
func DiscoverFeeds(dir string) ([]FeedConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".hcl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	var feeds []FeedConfig
	for _, path := range paths {
		loaded, err := LoadFeeds(path)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, loaded...)
	}
	return feeds, nil
}

func applyDefaults(c *FeedConfig) {
	if c.FTP.Port == 0 {
		c.FTP.Port = defaultFTPPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PMNCodeLength == 0 {
		c.PMNCodeLength = defaultPMNLength
	}
}

// Validate rejects feeds whose patterns do not compile or that could never
// produce a record.
func (c FeedConfig) Validate() error {
	for _, p := range []struct {
		name, pattern string
	}{
		{"file_pattern", c.FilePattern},
		{"home_file_pattern", c.HomeFilePattern},
		{"visiting_file_pattern", c.VisitingFilePattern},
	} {
		if p.pattern == "" {
			if p.name == "file_pattern" {
				return fmt.Errorf("file_pattern must be set")
			}
			continue
		}
		if _, err := regexp.Compile(p.pattern); err != nil {
			return fmt.Errorf("invalid %s: %w", p.name, err)
		}
	}

	if c.PMNCodeLocation < 0 {
		return fmt.Errorf("pmn_code_location must not be negative")
	}
	if c.SkipRows < 0 {
		return fmt.Errorf("skip_rows must not be negative")
	}
	if len(c.ServiceMappings) == 0 {
		return fmt.Errorf("at least one service_mapping block is required")
	}
	return nil
}
