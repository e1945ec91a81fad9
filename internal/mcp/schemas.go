package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// chunkTextTool returns the tool definition for chunk_text
func chunkTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_text",
		Description: "Split text into chunks of at most maxlen characters at word boundaries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to split",
				},
				"maxlen": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum chunk length in characters",
					"default":     500,
					"minimum":     1,
				},
			},
			Required: []string{"text"},
		},
	}
}

// embedTextTool returns the tool definition for embed_text
func embedTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "embed_text",
		Description: "Compute the embedding vector of a text with the configured provider",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to embed",
				},
			},
			Required: []string{"text"},
		},
	}
}

// indexCorpusTool returns the tool definition for index_corpus
func indexCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_corpus",
		Description: "Chunk and embed a text file so it can be searched",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the corpus text file",
				},
				"maxlen": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum chunk length in characters",
					"default":     500,
					"minimum":     1,
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index even when the file is unchanged",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCorpusTool returns the tool definition for search_corpus
func searchCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_corpus",
		Description: "Search an indexed corpus with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of an indexed corpus",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (vector + keyword), vector (semantic only), or keyword (BM25 only)",
					"enum":        []string{"hybrid", "vector", "keyword"},
					"default":     "hybrid",
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for a corpus",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the corpus",
				},
			},
			Required: []string{"path"},
		},
	}
}
