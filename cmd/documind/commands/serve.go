package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/ronak8180/DocuMind/internal/answer"
	"github.com/ronak8180/DocuMind/internal/ingestion"
	"github.com/ronak8180/DocuMind/internal/logging"
	"github.com/ronak8180/DocuMind/internal/provider"
	"github.com/ronak8180/DocuMind/internal/server"
	"github.com/ronak8180/DocuMind/internal/tracing"
)

// NewServeCmd constructs the `documind serve` command, which starts the HTTP
// server exposing the document chat API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DocuMind HTTP server",
		Long: `Start the DocuMind HTTP server on localhost.

The server exposes a REST API for session management, document upload,
and retrieval-augmented chat over the uploaded documents.

Examples:
  documind serve
  documind serve --port 9090
  MODEL_PROVIDER=azure documind serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "ollama")))

			manager, qdrantBackend, err := buildIndexManager(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = manager.Close() }()

			pipeline, err := ingestion.NewPipeline(manager, nil)
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}

			answerer, err := answer.New(chatModel, manager, nil)
			if err != nil {
				return fmt.Errorf("serve: failed to create answerer: %w", err)
			}

			hs, err := openHistory(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = hs.Close() }()

			srv, err := server.New(
				&server.Deps{
					Answerer: answerer,
					Ingester: pipeline,
					Indexes:  manager,
					History:  hs,
				},
				&server.Config{
					Host:      host,
					Port:      port,
					Logger:    log,
					Pingers:   buildPingers(chatModel, qdrantBackend),
					APIKey:    os.Getenv("DOCUMIND_API_KEY"),
					UploadDir: getEnvOrDefault("DOCUMIND_UPLOAD_DIR", "uploads"),
				},
				nil,
			)
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
