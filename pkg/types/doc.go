// Package types provides shared type definitions for embedtext.
//
// This package defines domain types used across multiple components:
// chunks of a corpus, embedding vectors, and search results.
//
// # Core Types
//
// Chunk represents a bounded-length section of a corpus, ready for embedding:
//
//	chunk := &types.Chunk{
//	    Index:       0,
//	    Content:     "the quick",
//	    StartOffset: 0,
//	    EndOffset:   9,
//	}
//	chunk.ComputeContentHash()
//
// Vector is an embedding as returned by a provider. Its text form is the one used
// by the chunk file and the interactive protocol:
//
//	v, err := types.ParseVector("0.25 -0.5 1 ")
//	fmt.Println(v.Format()) // "0.25 -0.5 1"
//
// # Validation
//
// Domain types implement validation methods to ensure data integrity:
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Search Results
//
// SearchResult combines chunk content with relevance scoring. Relevance scores are
// normalized to [0, 1], with higher values indicating better matches.
package types
