package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/docingest/pkg/ingestconfig"
)

var (
	cfgFile string
	verbose bool
	debug   bool
	cfg     *ingestconfig.Config
	logger  *slog.Logger
	version = "dev"
)

// RootCmd is the docingest CLI's entry point. Only --config is passed to
// ingestconfig.Load; the ingest subcommand overlays its explicitly set
// flags onto the loaded config afterwards (see applyIngestFlags).
var RootCmd = &cobra.Command{
	Use:   "docingest",
	Short: "docingest - layout-aware document ingestion into a vector store",
	Long: `docingest discovers source documents, extracts and enriches their
pages, chunks them under an adaptive token budget, embeds the chunks, and
upserts them into a vector store under a bounded concurrency hierarchy.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = ingestconfig.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		level := slog.LevelWarn
		if debug {
			level = slog.LevelDebug
		} else if verbose {
			level = slog.LevelInfo
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func Execute() error {
	return RootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docingest version %s\n", version)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path (default: ./docingest.toml or $XDG_CONFIG_HOME/docingest/docingest.toml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(ingestCmd)
}
