package cmd

import (
	"fmt"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/config"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/spf13/cobra"
)

// statusOrder fixes the print order of outcome counts
var statusOrder = []cache.Status{
	cache.StatusConverted,
	cache.StatusFailed,
	cache.StatusEmpty,
	cache.StatusCancelled,
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Show the outcome of the last processing of each file",
		Long:         `Summarize the outcome journal and list files whose last conversion failed.`,
		RunE:         runStatus,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetCount("verbose")
	logging.SetupLogger(verbose)

	files, err := config.NewLoader().LoadStateFiles(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !cache.Exists(files.JournalFile) {
		fmt.Fprintf(out, "No journal found at %s\n", files.JournalFile)
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

	failures, err := journal.Failures()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Journal: %s\n", files.JournalFile)
	for _, status := range statusOrder {
		fmt.Fprintf(out, "  %-10s %d\n", status+":", stats[status])
	}

	if len(failures) == 0 {
		return nil
	}

	fmt.Fprintf(out, "\nFailed files:\n")
	for _, o := range failures {
		fmt.Fprintf(out, "  %s\n    %s\n", o.SourceFile, o.Error)
	}

	return nil
}
