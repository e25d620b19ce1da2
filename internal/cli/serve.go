package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/mathroute/pkg/server"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries over JSON-RPC",
	Long: `Run the JSON-RPC 2.0 server in the foreground. Queries are accepted on
POST /rpc and on WebSocket /ws; /healthz and /metrics are served alongside.
Stops cleanly on SIGINT or SIGTERM after in-flight queries finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", -1, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Server
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort >= 0 {
		cfg.Port = servePort
	}

	zl := a.logger()
	srv, err := server.NewServer(server.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		SharedSecret:      cfg.SharedSecret,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxConcurrent:     cfg.MaxConcurrent,
		Handler:           a.pipeline,
		Registry:          a.registry,
		Logger:            &zl,
	})
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SharedSecret == "" {
		zl.Warn().Msg("No shared secret configured - the server accepts unauthenticated requests")
	}
	return srv.Run(ctx)
}
