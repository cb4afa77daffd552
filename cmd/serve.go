package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genfiles/genfiles/internal/config"
	"github.com/genfiles/genfiles/internal/hwp"
	"github.com/genfiles/genfiles/internal/knowledge"
	"github.com/genfiles/genfiles/internal/log"
	"github.com/genfiles/genfiles/internal/mcp"
	"github.com/genfiles/genfiles/internal/presenton"
	"github.com/genfiles/genfiles/internal/review"
	"github.com/genfiles/genfiles/internal/webui"
	"github.com/spf13/cobra"
)

// Server timeout configuration. No WriteTimeout is set: document
// generation holds the response open for the duration of the rendering
// call, which is bounded per call class by the config timeouts instead.
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 5 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document-generation MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the pipeline and serves MCP over streamable
// HTTP until interrupted.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: true})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting genfiles", "version", Version)

	handler, err := newHandler(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("server ready",
		"addr", cfg.Addr(),
		"mcp", "/mcp",
		"health", "/health",
		"knowledge_indexing", cfg.EnableKnowledge,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// newHandler wires the document pipeline into the HTTP handler tree:
// the MCP endpoint plus a health probe.
func newHandler(cfg *config.Config, logger log.Logger) (http.Handler, error) {
	transfer, err := webui.NewClient(cfg.WebUIURL, cfg.TransferTimeout, logger.With("component", "webui"))
	if err != nil {
		return nil, fmt.Errorf("creating transfer client: %w", err)
	}
	reconciler, err := knowledge.NewReconciler(cfg.WebUIURL, cfg.TransferTimeout, logger.With("component", "knowledge"))
	if err != nil {
		return nil, fmt.Errorf("creating knowledge reconciler: %w", err)
	}
	presentonClient, err := presenton.New(
		cfg.PresentonEndpoint,
		cfg.PresentonAPIKey,
		cfg.PresentonBaseURL,
		cfg.PresentonLanguage,
		cfg.GenerateTimeout,
		logger.With("component", "presenton"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating presenton client: %w", err)
	}
	hwpClient, err := hwp.New(cfg.HWPEndpoint, cfg.GenerateTimeout, logger.With("component", "hwp"))
	if err != nil {
		return nil, fmt.Errorf("creating hwp client: %w", err)
	}
	annotator, err := review.NewAnnotator(transfer, reconciler, cfg.EnableKnowledge, logger.With("component", "review"))
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:            "genfiles",
		Version:         Version,
		Transfer:        transfer,
		Reconciler:      reconciler,
		Presenton:       presentonClient,
		HWP:             hwpClient,
		Annotator:       annotator,
		EnableKnowledge: cfg.EnableKnowledge,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux, nil
}
