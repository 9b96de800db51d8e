package config

import (
	"os"
	"path/filepath"

	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envKeys maps config keys to the environment / .env variable names
var envKeys = map[string]string{
	"source_dir":        "LLM_SOURCE_DIR",
	"target_dir":        "LLM_TARGET_DIR",
	"cache_file":        "LLM_CACHE_FILE",
	"journal_file":      "LLM_JOURNAL_FILE",
	"workers":           "LLM_WORKERS",
	"rpm":               "LLM_RPM",
	"api_key":           "LLM_API_KEY",
	"api_url":           "LLM_API_URL",
	"model":             "LLM_MODEL",
	"timeout":           "LLM_TIMEOUT",
	"source_extensions": "LLM_SOURCE_EXTENSIONS",
}

// flagKeys maps command flag names to config keys
var flagKeys = map[string]string{
	"source":     "source_dir",
	"dest":       "target_dir",
	"cache":      "cache_file",
	"journal":    "journal_file",
	"no-journal": "no_journal",
	"workers":    "workers",
	"rpm":        "rpm",
	"api-key":    "api_key",
	"api-url":    "api_url",
	"model":      "model",
	"timeout":    "timeout",
	"checkpoint": "checkpoint_every",
	"ext":        "source_extensions",
	"verbose":    "verbose",
}

// Loader handles configuration loading from various sources
type Loader struct {
	// Directory searched for .env and local config files
	WorkDir string
}

// NewLoader creates a loader rooted at the current working directory
func NewLoader() *Loader {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Loader{WorkDir: wd}
}

// LoadForConvert loads configuration for a conversion run. Positional args,
// when present, are the source and target directories.
func (l *Loader) LoadForConvert(cmd *cobra.Command, args []string) (*Config, error) {
	l.Prepare(cmd)

	if len(args) > 0 {
		viper.Set("source_dir", args[0])
	}

	if len(args) > 1 {
		viper.Set("target_dir", args[1])
	}

	return Load()
}

// StateFiles locates the persisted run state
type StateFiles struct {
	CacheFile   string
	JournalFile string
}

// LoadStateFiles resolves the cache and journal paths without requiring
// endpoint settings
func (l *Loader) LoadStateFiles(cmd *cobra.Command) (StateFiles, error) {
	l.Prepare(cmd)

	files := StateFiles{
		CacheFile:   viper.GetString("cache_file"),
		JournalFile: viper.GetString("journal_file"),
	}

	for _, p := range []*string{&files.CacheFile, &files.JournalFile} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return StateFiles{}, errors.Wrapf(err, errors.ErrConfigInvalid, "invalid path %q", *p)
		}

		*p = abs
	}

	return files, nil
}

// Prepare populates viper from every source without validating, for
// commands that only need file locations
func (l *Loader) Prepare(cmd *cobra.Command) {
	l.setupViperDefaults()
	l.bindEnv()
	l.loadEnvFile()
	l.loadLocalConfig()
	l.bindCommandFlags(cmd)
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("cache_file", DefaultCacheFile)
	viper.SetDefault("journal_file", DefaultJournalFile)
	viper.SetDefault("workers", DefaultWorkers)
	viper.SetDefault("rpm", DefaultRPM)
	viper.SetDefault("model", DefaultModel)
	viper.SetDefault("timeout", DefaultTimeout)
	viper.SetDefault("checkpoint_every", DefaultCheckpointEvery)
	viper.SetDefault("source_extensions", DefaultSourceExtensions)
}

// bindEnv binds config keys to process environment variables
func (l *Loader) bindEnv() {
	for key, env := range envKeys {
		_ = viper.BindEnv(key, env)
	}
}

// loadEnvFile reads .env from the work directory. Its values only replace
// built-in defaults, so flags, environment and config files still win.
func (l *Loader) loadEnvFile() {
	path := FindEnvFile(l.WorkDir)
	if path == "" {
		return
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")

	if err := env.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to read env file")
		return
	}

	for key, name := range envKeys {
		if env.IsSet(name) {
			viper.SetDefault(key, env.Get(name))
		}
	}

	log.Debug().Str("path", path).Msg("Loaded configuration from env file")
}

// loadLocalConfig loads a .llmconv.* file from the work directory or a parent
func (l *Loader) loadLocalConfig() {
	localPath := FindLocalConfig(l.WorkDir)
	if localPath == "" {
		return
	}

	viper.SetConfigFile(localPath)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("path", localPath).Msg("Failed to read local config")
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}
