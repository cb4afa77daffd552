// Package mcp exposes the document-generation tools over the Model
// Context Protocol. The server registers one tool per document kind,
// serves them over the streamable-HTTP transport and forwards the
// caller's Authorization header to the file-storage service.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/genfiles/genfiles/internal/hwp"
	"github.com/genfiles/genfiles/internal/knowledge"
	"github.com/genfiles/genfiles/internal/presenton"
	"github.com/genfiles/genfiles/internal/review"
	"github.com/genfiles/genfiles/internal/webui"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server together with the document pipeline
// it orchestrates.
type Server struct {
	mcpServer       *mcp.Server
	transfer        *webui.Client
	reconciler      *knowledge.Reconciler
	presenton       *presenton.Client
	hwp             *hwp.Client
	annotator       *review.Annotator
	enableKnowledge bool
	logger          *slog.Logger
}

// Config holds the dependencies of the MCP server.
type Config struct {
	Name    string
	Version string

	Transfer   *webui.Client
	Reconciler *knowledge.Reconciler
	Presenton  *presenton.Client
	HWP        *hwp.Client
	Annotator  *review.Annotator

	// EnableKnowledge gates the indexing of generated files into the
	// owner's knowledge collection. When false, Reconciler may be nil.
	EnableKnowledge bool

	Logger *slog.Logger
}

// NewServer validates cfg, creates the SDK server and registers all
// tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Transfer == nil {
		return nil, fmt.Errorf("transfer client is required")
	}
	if cfg.EnableKnowledge && cfg.Reconciler == nil {
		return nil, fmt.Errorf("reconciler is required when knowledge indexing is enabled")
	}
	if cfg.Presenton == nil {
		return nil, fmt.Errorf("presenton client is required")
	}
	if cfg.HWP == nil {
		return nil, fmt.Errorf("hwp client is required")
	}
	if cfg.Annotator == nil {
		return nil, fmt.Errorf("annotator is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	instructions, err := template("instructions")
	if err != nil {
		return nil, err
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &mcp.ServerOptions{
		Instructions: instructions,
	})

	s := &Server{
		mcpServer:       mcpServer,
		transfer:        cfg.Transfer,
		reconciler:      cfg.Reconciler,
		presenton:       cfg.Presenton,
		hwp:             cfg.HWP,
		annotator:       cfg.Annotator,
		enableKnowledge: cfg.EnableKnowledge,
		logger:          cfg.Logger,
	}

	if err := s.registerGenerationTools(); err != nil {
		return nil, fmt.Errorf("registering generation tools: %w", err)
	}
	if err := s.registerReviewTools(); err != nil {
		return nil, fmt.Errorf("registering review tools: %w", err)
	}

	return s, nil
}

// Handler returns the streamable-HTTP handler for the server, wrapped
// in the middleware that stows the Authorization header in the request
// context.
func (s *Server) Handler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	return authMiddleware(streamable, s.logger)
}

// index attaches an uploaded file to the named knowledge collection of
// userID. Indexing failures are logged, never surfaced: the file is
// already uploaded and its download link must reach the caller.
func (s *Server) index(ctx context.Context, token, fileID, userID, collectionName string) {
	if !s.enableKnowledge {
		s.logger.Info("knowledge indexing disabled, skipping", "file_id", fileID)
		return
	}
	if err := s.reconciler.EnsureAttached(ctx, token, fileID, userID, collectionName); err != nil {
		s.logger.Error("knowledge indexing failed",
			"request_id", requestIDFrom(ctx),
			"file_id", fileID, "user_id", userID, "collection", collectionName, "error", err)
	}
}
