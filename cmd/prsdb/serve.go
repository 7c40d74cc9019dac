package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/cli"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/presentation/tui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the journey HTTP server",
	Long:  `Serves every journey as a JSON API under /journeys/{journeyName}, with metrics on the configured metrics address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ListenAddr = addr
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		app, err := cli.NewApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(cmd.OutOrStdout(), version)
		}

		err = cli.Serve(ctx, app, func(addr string) {
			logger.Info("prsdb ready", "addr", addr, "store", cfg.Store.Backend)
		})
		if sig := ctx.Signal(); sig != nil {
			logger.Info("stopped", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address, overriding listen_addr")
}
