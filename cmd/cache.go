package cmd

import (
	"fmt"
	"time"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/config"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the result cache",
	}

	statsCmd := &cobra.Command{
		Use:          "stats",
		Short:        "Show result cache statistics",
		RunE:         runCacheStats,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the result cache so every file is converted again",
		Long: `Delete the result cache and the outcome journal so the next run
converts every file again. Existing artifacts are left in place.`,
		RunE:         runCacheClear,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}

	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetCount("verbose")
	logging.SetupLogger(verbose)

	files, err := config.NewLoader().LoadStateFiles(cmd)
	if err != nil {
		return err
	}

	results := cache.Open(files.CacheFile)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Cache:      %s\n", results.Path())
	fmt.Fprintf(out, "Entries:    %d\n", results.Len())

	if last := results.LastFlush(); !last.IsZero() {
		fmt.Fprintf(out, "Last saved: %s\n", last.Format(time.RFC3339))
	} else {
		fmt.Fprintf(out, "Last saved: never\n")
	}

	if !cache.Exists(files.JournalFile) {
		return nil
	}

	journal, err := cache.OpenJournal(files.JournalFile)
	if err != nil {
		return err
	}
	defer journal.Close()

	stats, err := journal.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Journal:    %s\n", files.JournalFile)
	for _, status := range statusOrder {
		fmt.Fprintf(out, "  %-10s %d\n", status+":", stats[status])
	}

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetCount("verbose")
	logging.SetupLogger(verbose)

	files, err := config.NewLoader().LoadStateFiles(cmd)
	if err != nil {
		return err
	}

	results := cache.Open(files.CacheFile)
	count := results.Len()

	if err := results.Clear(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cleared %d cache entries from %s\n", count, files.CacheFile)

	if !cache.Exists(files.JournalFile) {
		return nil
	}

	journal, err := cache.OpenJournal(files.JournalFile)
	if err != nil {
		return err
	}
	defer journal.Close()

	if err := journal.Clear(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Cleared journal %s\n", files.JournalFile)
	return nil
}
