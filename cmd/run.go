package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tfischer/inboxpilot/internal/attachments"
	"github.com/tfischer/inboxpilot/internal/classify"
	"github.com/tfischer/inboxpilot/internal/config"
	"github.com/tfischer/inboxpilot/internal/gmail"
	"github.com/tfischer/inboxpilot/internal/instrumentation"
	"github.com/tfischer/inboxpilot/internal/logging"
	"github.com/tfischer/inboxpilot/internal/triage"
)

func newRunCmd() *cobra.Command {
	var (
		configPath     string
		account        string
		query          string
		maxResults     int64
		attachmentsDir string
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the inbox once and process matching messages",
		Long: `Run one triage cycle: list messages matching the configured query,
classify each against the rules, apply the category label, send configured
automatic replies and save attachments to disk.

Per-message failures are logged and counted but do not abort the cycle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			logger = logging.WithAccount(logger, account)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags override the file.
			if cmd.Flags().Changed("query") {
				cfg.Query = query
			}
			if cmd.Flags().Changed("max-results") {
				cfg.MaxResults = maxResults
			}
			if cmd.Flags().Changed("attachments-dir") {
				cfg.AttachmentsDir = attachmentsDir
			}
			// Overrides bypass the checks Load already ran.
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()

			instrCfg := instrumentation.DefaultConfig()
			instrCfg.ServiceVersion = version
			if err := instrCfg.Validate(); err != nil {
				return fmt.Errorf("invalid instrumentation config: %w", err)
			}
			provider, err := instrumentation.NewProvider(ctx, instrCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize instrumentation: %w", err)
			}
			defer func() {
				if err := provider.Shutdown(ctx); err != nil {
					logger.Warn("failed to shut down instrumentation", logging.Err(err))
				}
			}()

			client, err := gmail.NewClientForAccount(ctx, account, provider.Metrics())
			if err != nil {
				return fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
			}

			extractor := attachments.New(client, cfg.AttachmentsDir, logger)
			processor := triage.New(client, extractor, cfg, logger, provider.Metrics())

			summary, err := processor.Run(ctx)
			if err != nil {
				return fmt.Errorf("triage cycle failed: %w", err)
			}

			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to the configuration file")
	cmd.Flags().StringVar(&account, "account", "default", "Google account name to use (default: 'default')")
	cmd.Flags().StringVar(&query, "query", "", "Gmail search query (overrides config)")
	cmd.Flags().Int64Var(&maxResults, "max-results", 0, "Maximum messages to process (overrides config)")
	cmd.Flags().StringVar(&attachmentsDir, "attachments-dir", "", "Directory for saved attachments (overrides config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func printSummary(cmd *cobra.Command, s *triage.Summary) {
	cmd.Printf("Processed %d messages (%d skipped)\n", s.Processed, s.Skipped)

	categories := make([]string, 0, len(s.PerCategory))
	for c := range s.PerCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		cmd.Printf("  %-16s %d\n", c, s.PerCategory[classify.Category(c)])
	}

	if s.RepliesSent > 0 {
		cmd.Printf("Replies sent: %d\n", s.RepliesSent)
	}
	if s.AttachmentsSaved > 0 {
		cmd.Printf("Attachments saved: %d\n", s.AttachmentsSaved)
	}
	if failures := s.LabelFailures + s.SendFailures + s.AttachmentFailures; failures > 0 {
		cmd.Printf("Failures: %d label, %d reply, %d attachment\n",
			s.LabelFailures, s.SendFailures, s.AttachmentFailures)
	}
}
