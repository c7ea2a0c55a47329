package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsky/internal/app"
	"github.com/deusflow/newsky/internal/config"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/news"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagPipeline string
	flagSources  string
	flagDryRun   bool
)

var rootCmd = &cobra.Command{
	Use:           "newsky",
	Short:         "Post sports news to Bluesky",
	Long:          "newsky collects club news from feeds and APIs and posts each new article to Bluesky with a link card.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch news and publish what has not been posted yet",
	RunE:  runPipeline,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Fetch a pipeline's sources and print articles in posting order",
	RunE:  listSources,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsky %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPipeline, "pipeline", "", "pipeline to run (default $PIPELINE or hockey)")
	rootCmd.PersistentFlags().StringVar(&flagSources, "sources", "", "path to the sources YAML (default $SOURCES_CONFIG_PATH)")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "log what would be posted without posting")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("newsky failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flags. Credentials are only
// required when posting.
func loadConfig(needCredentials bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil && (needCredentials || !errors.Is(err, config.ErrMissingCredentials)) {
		return nil, err
	}
	if flagPipeline != "" {
		cfg.Pipeline = flagPipeline
	}
	if flagSources != "" {
		cfg.SourcesConfigPath = flagSources
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(!flagDryRun)
	if err != nil {
		return err
	}
	logger.InitWriter(os.Stdout, cfg.Debug, cfg.LogFormat)

	if cfg.EnableMonitoring {
		srv := startMonitoringServer(cfg.MonitoringPort)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	p, err := app.LoadPipeline(cfg)
	if err != nil {
		return err
	}
	logger.Info("starting run", "pipeline", p.Name, "label", p.Label, "sources", len(p.Sources), "dry_run", flagDryRun)

	pipeline, closePipeline, err := app.Build(cmd.Context(), cfg, p, flagDryRun)
	if err != nil {
		return err
	}
	defer closePipeline()

	_, err = pipeline.Run(cmd.Context())
	return err
}

func listSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	logger.InitWriter(os.Stderr, cfg.Debug, cfg.LogFormat)

	p, err := app.LoadPipeline(cfg)
	if err != nil {
		return err
	}
	sources, err := app.NewSources(cfg, p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.Label)
	for _, a := range news.Aggregate(cmd.Context(), sources...) {
		fmt.Fprintf(out, "%s  %-12s  %s\n    %s\n", a.Time().Local().Format("2006-01-02 15:04"), a.Source, a.Title, a.URL)
	}
	return nil
}
