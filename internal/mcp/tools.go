package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/embedtext/internal/chunker"
	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/internal/indexer"
	"github.com/dshills/embedtext/internal/searcher"
	"github.com/dshills/embedtext/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeCorpusNotFound     = -32001 // Specified path is not a readable file
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Corpus not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeEmbeddingFailed    = -32005 // Embedding provider failed
)

// maxErrorMessages bounds the errors listed in an index_corpus response
const maxErrorMessages = 5

// handleChunkText handles the chunk_text tool invocation
func (s *Server) handleChunkText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}

	maxLen := getIntDefault(args, "maxlen", s.cfg.Chunker.MaxLen)
	tc, err := chunker.New(maxLen, chunker.WithUnit(s.cfg.Unit()))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "maxlen must be a positive integer", map[string]interface{}{
			"param": "maxlen",
			"value": maxLen,
		})
	}

	chunks := tc.Split(chunker.NormalizeWhitespace(text))
	response := map[string]interface{}{
		"maxlen": maxLen,
		"count":  len(chunks),
		"chunks": chunks,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEmbedText handles the embed_text tool invocation
func (s *Server) handleEmbedText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}

	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, newMCPError(ErrorCodeEmbeddingFailed, "embedding failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"provider":  emb.Provider,
		"model":     emb.Model,
		"dimension": len(emb.Vector),
		"vector":    emb.Vector,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexCorpus handles the index_corpus tool invocation
func (s *Server) handleIndexCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	if err := validateCorpusFile(path); err != nil {
		return nil, newMCPError(ErrorCodeCorpusNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	maxLen := getIntDefault(args, "maxlen", s.cfg.Chunker.MaxLen)
	if maxLen < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "maxlen must be a positive integer", map[string]interface{}{
			"param": "maxlen",
			"value": maxLen,
		})
	}

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is in progress", nil)
	}
	defer s.lock.Release()

	stats, err := s.indexer.IndexCorpus(ctx, path, &indexer.Config{
		MaxLen:          maxLen,
		Unit:            s.cfg.Unit(),
		Workers:         s.cfg.Indexer.Workers,
		BatchSize:       s.cfg.Embedder.BatchSize,
		Force:           getBoolDefault(args, "force", false),
		ContinueOnError: s.cfg.Indexer.ContinueOnError,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if !stats.Skipped {
		s.searcher.InvalidateCache()
	}

	response := map[string]interface{}{
		"indexed":         true,
		"path":            path,
		"skipped":         stats.Skipped,
		"chunks_created":  stats.ChunksCreated,
		"chunks_embedded": stats.ChunksEmbedded,
		"chunks_failed":   stats.ChunksFailed,
		"dimension":       stats.Dimension,
		"duration_ms":     stats.Duration.Milliseconds(),
	}

	if n := len(stats.ErrorMessages); n > 0 {
		response["errors"] = stats.ErrorMessages[:min(n, maxErrorMessages)]
		response["error_count"] = n
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCorpus handles the search_corpus tool invocation
func (s *Server) handleSearchCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode, err := searcher.ParseMode(getStringDefault(args, "search_mode", string(searcher.SearchModeHybrid)))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   args["search_mode"],
			"allowed": []string{"hybrid", "vector", "keyword"},
		})
	}

	corpus, err := s.storage.GetCorpus(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "corpus not indexed", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get corpus", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Mode:     mode,
		CorpusID: corpus.ID,
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]interface{}{
			"rank":         r.Rank,
			"score":        r.RelevanceScore,
			"chunk_index":  r.Corpus.ChunkIndex,
			"start_offset": r.Corpus.StartOffset,
			"end_offset":   r.Corpus.EndOffset,
			"content":      r.Content,
		}
	}

	response := map[string]interface{}{
		"path":          path,
		"query":         query,
		"search_mode":   string(resp.SearchMode),
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	corpus, err := s.storage.GetCorpus(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Corpus not indexed. Use index_corpus tool to index this file.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get corpus status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, corpus.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": true,
		"corpus": map[string]interface{}{
			"path":            corpus.Path,
			"maxlen":          corpus.MaxLen,
			"unit":            corpus.Unit,
			"provider":        corpus.Provider,
			"model":           corpus.Model,
			"last_indexed_at": corpus.LastIndexedAt.Format(time.RFC3339),
		},
		"statistics": map[string]interface{}{
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"dimension":        status.Dimension,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"embeddings_complete":  status.Health.EmbeddingsComplete,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requirePath extracts the path parameter as a clean absolute path
func requirePath(args map[string]interface{}) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathRequired.Error(),
		})
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}
	return filepath.Clean(path), nil
}

// validateCorpusFile checks that path names a readable regular file
func validateCorpusFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrIsDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrIsDirectory     = errors.New("path is a directory, not a text file")
)
