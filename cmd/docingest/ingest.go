package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docingest/pkg/ingestconfig"
	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/pipeline"
)

var (
	flagDocumentAction string
	flagTargetTokens   int
	flagOverlapPercent int
	flagMaxWorkers     int
	flagMaxConcEmbed   int
	flagCleanup        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over the configured input source",
	Long: `Discovers every document the configured InputSource reports and
drives each one through extraction, enrichment, chunking, embedding, and
upsert, honoring the configured document_action (add, remove, remove_all).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIngestFlags(cmd, cfg)

		orch, err := pipeline.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}

		status, err := orch.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}

		printSummary(status)
		if status.FailedDocuments > 0 {
			os.Exit(1)
		}
		return nil
	},
}

// applyIngestFlags overlays any explicitly-set ingest flags onto the
// config returned by ingestconfig.Load, so a set flag wins over the
// env, file and default layers (§6/§10).
func applyIngestFlags(cmd *cobra.Command, cfg *ingestconfig.Config) {
	flags := cmd.Flags()
	if flags.Changed("document-action") {
		cfg.Action.DocumentAction = flagDocumentAction
	}
	if flags.Changed("target-tokens") {
		cfg.Chunking.TargetTokens = flagTargetTokens
	}
	if flags.Changed("overlap-percent") {
		cfg.Chunking.OverlapPercent = flagOverlapPercent
	}
	if flags.Changed("max-workers") {
		cfg.Performance.MaxWorkers = flagMaxWorkers
	}
	if flags.Changed("max-concurrency-embed") {
		cfg.Performance.MaxConcurrencyEmbed = flagMaxConcEmbed
	}
	if flags.Changed("cleanup-artifacts") {
		cfg.Action.CleanupArtifacts = flagCleanup
	}
}

func printSummary(status ingestdomain.PipelineStatus) {
	fmt.Printf("ingested %d/%d documents (%.1f%% success)\n",
		status.SucceededDocuments, status.TotalDocuments, status.SuccessRate()*100)
	for _, r := range status.Results {
		if r.Success {
			fmt.Printf("  OK   %s: %d chunks (%.2fs)\n", r.Filename, r.ChunksIndexed, r.ProcessingTimeSeconds)
			continue
		}
		fmt.Printf("  FAIL %s: %s: %s\n", r.Filename, r.ErrorKind, r.ErrorMessage)
	}
}

func init() {
	ingestCmd.Flags().StringVar(&flagDocumentAction, "document-action", "", "add | remove | remove_all (overrides config)")
	ingestCmd.Flags().IntVar(&flagTargetTokens, "target-tokens", 0, "chunking target token budget (overrides config)")
	ingestCmd.Flags().IntVar(&flagOverlapPercent, "overlap-percent", 0, "chunk overlap percent (overrides config)")
	ingestCmd.Flags().IntVar(&flagMaxWorkers, "max-workers", 0, "document-level concurrency (overrides config)")
	ingestCmd.Flags().IntVar(&flagMaxConcEmbed, "max-concurrency-embed", 0, "embedding-batch concurrency (overrides config)")
	ingestCmd.Flags().BoolVar(&flagCleanup, "cleanup-artifacts", false, "delete artifacts alongside chunks for remove/remove_all")
}
