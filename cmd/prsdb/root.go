package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/config"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "prsdb",
	Short:         "Private rented sector database journeys",
	Long:          `prsdb serves the guided registration journeys of the private rented sector database and inspects their sessions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
}

// loadConfig reads the configuration named by --config, applying --log-level on top.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	level, err := cfg.Level()
	if err != nil {
		return config.Config{}, nil, err
	}

	var opts []logging.Option
	if asJSON, _ := cmd.Flags().GetBool("log-json"); asJSON {
		opts = append(opts, logging.WithJSON())
	}
	return cfg, logging.New(level, opts...), nil
}
