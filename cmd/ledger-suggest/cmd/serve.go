package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/api"
)

var serveAddr string

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the suggestion API over HTTP",
	Long: `Start the HTTP API used by the entry form to pre-fill new entries.

Endpoints:
  POST /api/1/suggestions
  POST /api/1/entries/validate
  GET  /health

Example:
  ledger-suggest serve --addr :8090`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from SERVER_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, pathResolver := loadConfig([]string{"server", "addr"})
	conn := openDatabase(pathResolver)
	defer conn.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	logger := slog.Default()
	router := api.NewRouter(api.RouterConfig{
		Engine:         newEngine(cfg, pathResolver, conn),
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitOnError(api.Serve(ctx, addr, router, logger), "server failed")
}
