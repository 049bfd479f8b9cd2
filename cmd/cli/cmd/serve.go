package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/size-analysis/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Start an HTTP server exposing the analysis service.

Endpoints:
  POST /v1/analyze          analyze the request body
  POST /v1/convert          convert tape text to JSON
  GET  /v1/runs             list recorded runs
  GET  /v1/runs/:id         show one run
  GET  /v1/runs/:id/report  fetch the stored report of a run
  GET  /health              health check
  GET  /metrics             Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Serve with the configured address
  ` + binName + ` serve -c ./config.yaml

  # Override the listen address
  ` + binName + ` serve --addr 127.0.0.1:9090`

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	serverCfg := cfg.Server
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}

	if err := server.New(serverCfg, svc, log).Run(ctx); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
