package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/embedtext/internal/config"
	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/internal/indexer"
	"github.com/dshills/embedtext/internal/searcher"
	"github.com/dshills/embedtext/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "embedtext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.AppConfig
	storage  storage.Storage
	embedder embedder.Embedder
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	lock     indexer.IndexLock
}

// NewServer opens the configured database and embedder and registers the tools
func NewServer(cfg *config.AppConfig) (*Server, error) {
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return newServer(cfg, store, emb), nil
}

// newServer wires the components. Indexer and searcher share one embedder and its cache.
func newServer(cfg *config.AppConfig, store storage.Storage, emb embedder.Embedder) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		cfg:      cfg,
		storage:  store,
		embedder: emb,
		indexer:  indexer.New(emb, store),
		searcher: searcher.NewSearcher(store, emb),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the embedder and the database
func (s *Server) Close() error {
	_ = s.embedder.Close()
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(chunkTextTool(), s.handleChunkText)
	s.mcp.AddTool(embedTextTool(), s.handleEmbedText)
	s.mcp.AddTool(indexCorpusTool(), s.handleIndexCorpus)
	s.mcp.AddTool(searchCorpusTool(), s.handleSearchCorpus)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
