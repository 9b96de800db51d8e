package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/Norgate-AV/llmconv/internal/utils"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultCacheFile       = ".conversion_cache.json"
	DefaultJournalFile     = ".conversion_journal.db"
	DefaultWorkers         = 4
	DefaultRPM             = 20
	DefaultModel           = "gpt-3.5-turbo"
	DefaultTimeout         = 60 * time.Second
	DefaultCheckpointEvery = 5
)

// DefaultSourceExtensions is the C++ suffix allow-list
var DefaultSourceExtensions = []string{".cpp", ".cc", ".cxx", ".c++", ".h", ".hpp", ".hxx", ".h++"}

// Holds the configuration options for llmconv
type Config struct {
	// Root of the tree to convert
	SourceDir string
	// Root of the mirrored output tree
	TargetDir string

	// JSON result cache
	CacheFile string

	// BoltDB outcome journal
	JournalFile string
	NoJournal   bool

	// Number of concurrent conversion workers
	Workers int

	// Requests per minute allowed for each credential
	RPM int

	// Opaque bearer credentials, one rate limiter slot each
	APIKeys []string

	// Base URL of the OpenAI-compatible endpoint
	APIURL string
	Model  string

	// Per request timeout
	Timeout time.Duration

	// Flush the result cache after this many successful conversions
	CheckpointEvery int

	// Lower-cased, dot-prefixed source suffixes
	SourceExtensions []string

	Verbose int
}

func Load() (*Config, error) {
	timeout, err := parseTimeout(viper.Get("timeout"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "invalid timeout")
	}

	cfg := &Config{
		SourceDir:        viper.GetString("source_dir"),
		TargetDir:        viper.GetString("target_dir"),
		CacheFile:        viper.GetString("cache_file"),
		JournalFile:      viper.GetString("journal_file"),
		NoJournal:        viper.GetBool("no_journal"),
		Workers:          viper.GetInt("workers"),
		RPM:              viper.GetInt("rpm"),
		APIKeys:          utils.SplitList(viper.GetString("api_key")),
		APIURL:           viper.GetString("api_url"),
		Model:            viper.GetString("model"),
		Timeout:          timeout,
		CheckpointEvery:  viper.GetInt("checkpoint_every"),
		SourceExtensions: utils.FlattenList(viper.GetStringSlice("source_extensions")),
		Verbose:          viper.GetInt("verbose"),
	}

	// Apply defaults if not set
	if cfg.CacheFile == "" {
		cfg.CacheFile = DefaultCacheFile
	}

	if cfg.JournalFile == "" {
		cfg.JournalFile = DefaultJournalFile
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if len(cfg.SourceExtensions) == 0 {
		cfg.SourceExtensions = DefaultSourceExtensions
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New(errors.ErrConfigInvalid, "API URL is required. Provide it via --api-url or LLM_API_URL in .env")
	}

	if len(c.APIKeys) == 0 {
		return errors.New(errors.ErrConfigInvalid, "at least one API key is required. Provide it via --api-key or LLM_API_KEY in .env (comma separated for multiple keys)")
	}

	if c.SourceDir == "" || c.TargetDir == "" {
		return errors.New(errors.ErrConfigInvalid, "source and target directories are required")
	}

	if c.Workers < 1 {
		return errors.Newf(errors.ErrConfigInvalid, "workers must be at least 1, got %d", c.Workers)
	}

	if c.RPM < 1 {
		return errors.Newf(errors.ErrConfigInvalid, "rpm must be at least 1, got %d", c.RPM)
	}

	if c.CheckpointEvery < 1 {
		return errors.Newf(errors.ErrConfigInvalid, "checkpoint interval must be at least 1, got %d", c.CheckpointEvery)
	}

	if c.Timeout < time.Second {
		return errors.Newf(errors.ErrConfigInvalid, "timeout must be at least 1s, got %s", c.Timeout)
	}

	c.SourceExtensions = utils.NormalizeExtensions(c.SourceExtensions)
	if len(c.SourceExtensions) == 0 {
		return errors.New(errors.ErrConfigInvalid, "no source extensions configured")
	}

	// Resolve paths
	for _, p := range []*string{&c.SourceDir, &c.TargetDir, &c.CacheFile, &c.JournalFile} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigInvalid, "invalid path %q", *p)
		}

		*p = abs
	}

	info, err := os.Stat(c.SourceDir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigInvalid, "source directory %s does not exist", c.SourceDir)
	}

	if !info.IsDir() {
		return errors.Newf(errors.ErrConfigInvalid, "source %s is not a directory", c.SourceDir)
	}

	return nil
}

// parseTimeout reads a timeout from any config source. Unitless numbers,
// as written in .env files, are seconds.
func parseTimeout(v interface{}) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(t)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}

		return time.ParseDuration(s)
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
