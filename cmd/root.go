package cmd

import (
	"fmt"
	"os"

	"github.com/Norgate-AV/llmconv/internal/config"
	"github.com/Norgate-AV/llmconv/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the full command tree
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "llmconv [source_dir] [target_dir]",
		Short: "Incremental C++ to Python converter",
		Long: `Convert a tree of C++ sources to Python through an OpenAI-compatible
chat completions API. Unchanged files are skipped using a persistent result
cache, and requests are spread across every configured API key.`,
		RunE:         runConvert,
		SilenceUsage: true,
		Args:         cobra.RangeArgs(0, 2),
		Version:      fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime),
	}

	flags := root.PersistentFlags()
	flags.String("source", "", "Source directory to convert")
	flags.String("dest", "", "Target directory for converted files")
	flags.String("cache", config.DefaultCacheFile, "Result cache file")
	flags.String("journal", config.DefaultJournalFile, "Outcome journal database")
	flags.Bool("no-journal", false, "Disable the outcome journal")
	flags.IntP("workers", "w", config.DefaultWorkers, "Number of concurrent workers")
	flags.Int("rpm", config.DefaultRPM, "Requests per minute allowed for each API key")
	flags.String("api-key", "", "API key, comma separated for multiple keys")
	flags.String("api-url", "", "Base URL of the chat completions API")
	flags.String("model", config.DefaultModel, "Model name")
	flags.Duration("timeout", config.DefaultTimeout, "Per request timeout")
	flags.Int("checkpoint", config.DefaultCheckpointEvery, "Flush the cache after this many conversions")
	flags.StringSlice("ext", nil, "Source file extensions (e.g. .cpp,.h)")
	flags.CountP("verbose", "v", "Verbose output (-vv for trace)")

	root.AddCommand(newStatusCmd())
	root.AddCommand(newCacheCmd())

	return root
}
