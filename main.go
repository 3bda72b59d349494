package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rm-hull/gas-prices-ingest/cmd"
	"github.com/rm-hull/gas-prices-ingest/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var configPath string
	var port int
	var debug bool

	rootCmd := &cobra.Command{
		Use:          "gas-prices",
		Short:        "Gas station price ingester",
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Ingest(c.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "Path to the key/value configuration file")

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch and store prices every 15 minutes until terminated",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Ingest(c.Context(), configPath)
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Run a single ingestion cycle and exit",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Import(c.Context(), configPath)
		},
	}

	apiServerCmd := &cobra.Command{
		Use:   "api-server",
		Short: "Ingest on a schedule and serve the latest prices over HTTP",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ApiServer(c.Context(), configPath, port, debug)
		},
	}
	apiServerCmd.Flags().IntVar(&port, "port", 8080, "Port to run HTTP server on")
	apiServerCmd.Flags().BoolVar(&debug, "debug", false, "Enable debugging (pprof) - WARNING: do not enable in production")

	rootCmd.AddCommand(ingestCmd, importCmd, apiServerCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
