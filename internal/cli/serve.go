package cli

import (
	"context"
	"fmt"
	"time"

	"interviewer/internal/common"
	"interviewer/internal/config"
	"interviewer/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interview web UI and REST API",
	Long: `Start an HTTP server hosting the interview UI and its REST API.

Each browser tab gets its own interview session. Uploaded documents live in a
session-scoped temporary directory and are removed when the session ends,
expires or the server shuts down.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	applyServeFlags(cmd, cfg)
	if err := cfg.Server.TLS.Validate(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	rt, err := common.NewRuntime(cmd.Context(), cfg, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize interviewer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rt.Close(ctx)
	}()

	deps := server.Dependencies{
		Sessions:      rt.Sessions,
		Ingestor:      rt.Ingestor,
		Models:        rt.AI,
		Observability: rt.Observability,
	}
	if rt.Archive != nil {
		deps.Archive = rt.Archive
	}

	srv := server.NewServer(cfg, server.NewServerConfig(cfg, Version), deps, logger)
	return srv.Run(cmd.Context())
}
