package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/faultline/internal/llm"
	"github.com/ppiankov/faultline/internal/logging"
	"github.com/ppiankov/faultline/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveFlags     overrides
	serveAddr      string
	serveTimeout   time.Duration
	allowedOrigins []string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve exposes Faultline over HTTP:

  GET  /api/health           provider and search status
  POST /api/analyze          run an analysis and return the final state
  GET  /api/analyze/stream   WebSocket: send one request, receive every snapshot
  GET  /api/search?q=        evidence search proxy
  GET  /metrics              Prometheus metrics

Example:
  faultline serve --addr :8788
  faultline serve --provider openai --origin https://app.example.com`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().DurationVar(&serveTimeout, "analyze-timeout", 10*time.Minute, "upper bound of one analysis")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "origin", nil, "allowed CORS origins (default: localhost)")
	serveFlags.register(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveFlags.resolveConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := logging.NewJSON(cfg.Output.Verbose, os.Stderr)
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a.checkProvider(ctx)

	var searcher llm.Searcher
	if a.searcher.Configured() {
		searcher = a.searcher
	}

	srv := server.New(a.pipeline, searcher, server.Options{
		Provider:       a.provider.Name(),
		Model:          a.provider.ModelName(),
		MaxResults:     cfg.Search.MaxResults,
		AnalyzeTimeout: serveTimeout,
		AllowedOrigins: allowedOrigins,
	}, logger)

	fmt.Fprintf(os.Stderr, "Faultline %s listening on %s (%s/%s)\n", Version, cfg.Server.Addr, a.provider.Name(), a.provider.ModelName())
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
