// Package mcp implements the Model Context Protocol (MCP) server for embedtext.
//
// The MCP server exposes five tools:
//   - chunk_text: Split text into word-boundary chunks
//   - embed_text: Embed a text with the configured provider
//   - index_corpus: Chunk, embed and store a text file
//   - search_corpus: Search an indexed corpus
//   - get_status: Check indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client -> Server: {"method": "tools/call", "params": {...}}
//	Server -> Client: {"result": {...}}
//
// # Basic Usage
//
//	cfg, _ := config.Load("")
//	srv, err := mcp.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(srv.Serve(ctx))
//
// # Tool: index_corpus
//
//	Request:
//	{
//	  "name": "index_corpus",
//	  "arguments": {"path": "/data/corpus.txt", "maxlen": 500, "force": false}
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "skipped": false,
//	  "chunks_created": 1204,
//	  "chunks_embedded": 1204,
//	  "chunks_failed": 0,
//	  "dimension": 384,
//	  "duration_ms": 5230
//	}
//
// Only one index_corpus call runs at a time; a concurrent call fails with
// ErrorCodeIndexingInProgress. An unchanged file is not re-embedded unless force is set.
//
// # Tool: search_corpus
//
//	Request:
//	{
//	  "name": "search_corpus",
//	  "arguments": {"path": "/data/corpus.txt", "query": "lazy dog", "limit": 5, "search_mode": "hybrid"}
//	}
//
// Each result carries its rank, score, chunk_index, character offsets and content.
//
// # Error Handling
//
// Tool errors are returned as *MCPError with JSON-RPC style codes:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  path is not a readable file
//	-32002  indexing already in progress
//	-32003  corpus not indexed
//	-32004  empty query
//	-32005  embedding provider failed
package mcp
