// Package chunker splits long text into bounded-length chunks for embedding.
//
// Each chunk is at most maxlen characters long. The chunker prefers to end a chunk
// at whitespace so that words are kept whole; only a single token longer than
// maxlen is cut mid-word.
//
// # Basic Usage
//
//	c, err := chunker.New(500)
//	if err != nil {
//	    log.Fatal(err) // maxlen <= 0
//	}
//
//	for chunk := range c.Chunks(chunker.NormalizeWhitespace(corpus)) {
//	    fmt.Println(chunk)
//	}
//
// # Chunking Strategy
//
// Starting at the current offset, characters are accumulated until the next one
// would exceed maxlen. If that cut lands inside a word, the chunk ends at the last
// whitespace before it instead. A window with no whitespace at all is cut at exactly
// maxlen. Emitted chunks are trimmed, the boundary whitespace is skipped, and
// whitespace-only chunks are never produced.
//
// For example, with maxlen 10:
//
//	"the quick brown fox"  -> "the quick", "brown fox"
//
// and with maxlen 5:
//
//	"supercalifragilistic" -> "super", "calif", "ragil", "istic"
//
// # Characters
//
// Length is measured in runes by default, so multi-byte sequences are never split.
// WithUnit(UnitGraphemes) measures user-perceived characters instead, keeping
// combining marks and emoji sequences together.
//
// # Metadata
//
// ChunkText returns types.Chunk values with index, character offsets, SHA-256
// content hash and a token count. Token counts use a chars/4 heuristic unless a
// TikTokenCounter is configured:
//
//	tc, err := chunker.NewTikTokenCounter("cl100k_base")
//	c, err := chunker.New(500, chunker.WithTokenCounter(tc))
//
// # Concurrency
//
// A TextChunker holds only its configuration. All scan state lives in a single call,
// so one instance can be shared between goroutines.
package chunker
