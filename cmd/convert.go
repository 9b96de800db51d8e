package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/config"
	"github.com/Norgate-AV/llmconv/internal/convert"
	"github.com/Norgate-AV/llmconv/internal/llm"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/Norgate-AV/llmconv/internal/ratelimit"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runConvert(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetCount("verbose")
	logging.SetupLogger(verbose)

	defer logging.LogDuration(time.Now(), "convert")

	cfg, err := config.NewLoader().LoadForConvert(cmd, args)
	if err != nil {
		return err
	}

	log.Debug().
		Str("source", cfg.SourceDir).
		Str("target", cfg.TargetDir).
		Str("cache", cfg.CacheFile).
		Int("workers", cfg.Workers).
		Int("rpm", cfg.RPM).
		Str("model", cfg.Model).
		Msg("Configuration loaded")

	log.Info().Int("keys", len(cfg.APIKeys)).Msg("Using API keys for rate limiting")

	pool, err := ratelimit.NewPool(cfg.APIKeys, cfg.RPM)
	if err != nil {
		return err
	}

	profile := convert.CppToPython
	client := llm.NewClient(cfg.APIURL, cfg.Model, profile.Prompt, cfg.Timeout)
	log.Debug().Str("endpoint", client.Endpoint()).Msg("API client ready")

	results := cache.Open(cfg.CacheFile)
	pipeline := convert.NewPipeline(cfg, profile, client, pool, results)

	if !cfg.NoJournal {
		journal, err := cache.OpenJournal(cfg.JournalFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.JournalFile).Msg("Outcome journal unavailable, continuing without it")
		} else {
			defer journal.Close()
			pipeline.WithJournal(journal)
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	summary.Print(cmd.OutOrStdout())

	if ctx.Err() != nil {
		log.Warn().Int("not_started", summary.Cancelled).Msg("Run interrupted, progress has been saved")
	}

	return nil
}

// commandContext returns the command's context or a background one when
// the command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
