package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsky/internal/app"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/storage"
)

var postedCmd = &cobra.Command{
	Use:   "posted",
	Short: "Print the remembered posted links of a pipeline, oldest first",
	RunE:  listPosted,
}

func init() {
	rootCmd.AddCommand(postedCmd)
}

func listPosted(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	logger.InitWriter(os.Stderr, cfg.Debug, cfg.LogFormat)

	p, err := app.LoadPipeline(cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(cmd.Context(), cfg.DatabaseURL, cfg.PostedPath(p), p.Name, cfg.PostedCap)
	if err != nil {
		return err
	}
	defer store.Close()

	set, err := store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading posted history: %w", err)
	}

	out := cmd.OutOrStdout()
	for i, id := range set.IDs() {
		fmt.Fprintf(out, "%3d. %s\n", i+1, id)
	}
	fmt.Fprintf(out, "%d of %d\n", set.Len(), cfg.PostedCap)
	return nil
}
