// Package searcher finds chunks of an indexed corpus by meaning, by keyword, or both.
//
// The searcher provides three search modes:
//   - Hybrid: vector and BM25 results merged with Reciprocal Rank Fusion (default)
//   - Vector: cosine similarity between the query embedding and chunk embeddings
//   - Keyword: BM25 full-text search only; no embedding request is made
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    CorpusID: corpus.ID,
//	    Query:    "lazy dog",
//	    Limit:    10,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] chunk %d (score: %.3f) %s\n",
//	        r.Rank, r.Corpus.ChunkIndex, r.RelevanceScore, r.Content)
//	}
//
// # Reciprocal Rank Fusion
//
// In hybrid mode both searches fetch twice the limit and each chunk scores
//
//	RRF(d) = sum over result lists of 1 / (k + rank(d))
//
// with k = 60 unless SearchRequest.RRFConstant says otherwise. If one of the two
// searches fails the other still produces results.
//
// # Query Cache
//
// With SearchRequest.UseCache, responses are kept in an LRU cache keyed by the
// query, mode, corpus, limit and filters, and expire after CacheTTL (default one
// hour). Callers receive copies. Call InvalidateCache after re-indexing.
package searcher
