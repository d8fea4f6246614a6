package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"corpusqa/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the HTTP server exposing /chat, /search, /reindex and /health.
The index is built on startup and refreshed whenever the corpus file
changes.

Examples:
  corpusqa serve
  corpusqa serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	retrieveUC, snapshots, err := newRetrieveUseCase(cfg)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	answerUC, conversations, err := newAnswerUseCase(cfg, retrieveUC)
	if err != nil {
		return err
	}
	if conversations != nil {
		defer conversations.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build eagerly so the first request does not pay for indexing. A
	// failure here is not fatal: the server starts and retries on demand.
	if err := retrieveUC.EnsureFresh(ctx); err != nil {
		log.WithError(err).Warn("initial index build failed, will retry on demand")
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(answerUC, retrieveUC, cfg.Retrieve.TopK, cfg.Retrieve.RelevanceThreshold, log)
	return srv.ListenAndServe(ctx, addr)
}
