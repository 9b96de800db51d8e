package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("api-url", "", "")
	cmd.Flags().String("api-key", "", "")
	cmd.Flags().IntP("workers", "w", 4, "")
	cmd.Flags().Int("rpm", 20, "")
	cmd.Flags().String("model", "", "")
	cmd.Flags().CountP("verbose", "v", "")
	return cmd
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotEmpty(t, loader.WorkDir)
}

func TestLoader_SetupViperDefaults(t *testing.T) {
	viper.Reset()
	loader := NewLoader()
	loader.setupViperDefaults()

	assert.Equal(t, DefaultCacheFile, viper.GetString("cache_file"))
	assert.Equal(t, DefaultWorkers, viper.GetInt("workers"))
	assert.Equal(t, DefaultRPM, viper.GetInt("rpm"))
	assert.Equal(t, DefaultModel, viper.GetString("model"))
	assert.Equal(t, DefaultTimeout, viper.GetDuration("timeout"))
}

func TestLoader_LoadEnvFile(t *testing.T) {
	viper.Reset()
	workDir := t.TempDir()
	content := "LLM_API_URL=http://localhost:11434/v1\nLLM_API_KEY=key1,key2\nLLM_MODEL=codellama\nLLM_RPM=30\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"), []byte(content), 0o644))

	loader := &Loader{WorkDir: workDir}
	loader.setupViperDefaults()
	loader.loadEnvFile()

	assert.Equal(t, "http://localhost:11434/v1", viper.GetString("api_url"))
	assert.Equal(t, "key1,key2", viper.GetString("api_key"))
	assert.Equal(t, "codellama", viper.GetString("model"))
	assert.Equal(t, 30, viper.GetInt("rpm"))
}

func TestLoader_FlagsOverrideEnvFile(t *testing.T) {
	viper.Reset()
	workDir := t.TempDir()
	content := "LLM_API_URL=http://from-env-file/v1\nLLM_API_KEY=envkey\nLLM_MODEL=from-env-file\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"), []byte(content), 0o644))

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--model", "from-flag", "-w", "2"}))

	source := t.TempDir()
	target := filepath.Join(t.TempDir(), "out")

	loader := &Loader{WorkDir: workDir}
	cfg, err := loader.LoadForConvert(cmd, []string{source, target})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Model)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "http://from-env-file/v1", cfg.APIURL)
	assert.Equal(t, []string{"envkey"}, cfg.APIKeys)
	assert.Equal(t, source, cfg.SourceDir)
	assert.Equal(t, target, cfg.TargetDir)
}

func TestLoader_LocalConfigOverridesEnvFile(t *testing.T) {
	viper.Reset()
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"), []byte("LLM_MODEL=from-env-file\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".llmconv.yml"), []byte("model: from-local\nrpm: 7\n"), 0o644))

	loader := &Loader{WorkDir: workDir}
	loader.Prepare(nil)

	assert.Equal(t, "from-local", viper.GetString("model"))
	assert.Equal(t, 7, viper.GetInt("rpm"))
}

func TestLoader_ProcessEnvironment(t *testing.T) {
	viper.Reset()
	t.Setenv("LLM_API_URL", "http://from-process/v1")

	loader := &Loader{WorkDir: t.TempDir()}
	loader.Prepare(nil)

	assert.Equal(t, "http://from-process/v1", viper.GetString("api_url"))
}

func TestLoader_MissingEndpointIsFatal(t *testing.T) {
	viper.Reset()

	loader := &Loader{WorkDir: t.TempDir()}
	cfg, err := loader.LoadForConvert(newTestCommand(), []string{t.TempDir(), t.TempDir()})

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "API URL is required")
}

func TestLoader_LoadStateFiles(t *testing.T) {
	viper.Reset()
	workDir := t.TempDir()

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("cache", "", "")
	cmd.Flags().String("journal", "", "")
	require.NoError(t, cmd.Flags().Set("journal", filepath.Join(workDir, "j.db")))

	loader := &Loader{WorkDir: workDir}
	files, err := loader.LoadStateFiles(cmd)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(files.CacheFile))
	assert.Equal(t, DefaultCacheFile, filepath.Base(files.CacheFile))
	assert.Equal(t, filepath.Join(workDir, "j.db"), files.JournalFile)
}

func TestLoader_UnitlessTimeoutIsSeconds(t *testing.T) {
	viper.Reset()
	workDir := t.TempDir()
	content := "LLM_API_URL=http://localhost:11434/v1\nLLM_API_KEY=key1\nLLM_TIMEOUT=60\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"), []byte(content), 0o644))

	loader := &Loader{WorkDir: workDir}
	cfg, err := loader.LoadForConvert(newTestCommand(), []string{t.TempDir(), t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.Timeout)

	// The process environment takes the same form
	viper.Reset()
	t.Setenv("LLM_TIMEOUT", "120")
	cfg, err = loader.LoadForConvert(newTestCommand(), []string{t.TempDir(), t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
}
