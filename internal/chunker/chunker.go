package chunker

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/graphemes"

	"github.com/dshills/embedtext/pkg/types"
)

const (
	// DefaultMaxLen is the chunk length used by the corpus tools when none is configured
	DefaultMaxLen = 500
)

// ErrInvalidMaxLen is returned when a chunker is constructed with a non-positive maximum length
var ErrInvalidMaxLen = errors.New("maxlen must be a positive integer")

// Unit selects what counts as one character when measuring chunk length
type Unit int

const (
	// UnitRunes counts Unicode code points
	UnitRunes Unit = iota
	// UnitGraphemes counts user-perceived characters (UAX #29 grapheme clusters)
	UnitGraphemes
)

// String returns the config name of the unit
func (u Unit) String() string {
	switch u {
	case UnitRunes:
		return "runes"
	case UnitGraphemes:
		return "graphemes"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ParseUnit maps a config name to a Unit. The empty string selects UnitRunes.
func ParseUnit(name string) (Unit, error) {
	switch strings.ToLower(name) {
	case "", "runes", "rune":
		return UnitRunes, nil
	case "graphemes", "grapheme":
		return UnitGraphemes, nil
	default:
		return 0, fmt.Errorf("unknown character unit %q", name)
	}
}

// Option configures a TextChunker
type Option func(*TextChunker)

// WithUnit sets the character unit used to measure chunk length
func WithUnit(u Unit) Option {
	return func(c *TextChunker) {
		c.unit = u
	}
}

// WithTokenCounter sets the counter used to fill Chunk.TokenCount
func WithTokenCounter(tc TokenCounter) Option {
	return func(c *TextChunker) {
		if tc != nil {
			c.tokens = tc
		}
	}
}

// TextChunker splits text into chunks of at most maxLen characters, breaking at
// whitespace where possible. It holds only immutable configuration and is safe for
// concurrent use.
type TextChunker struct {
	maxLen int
	unit   Unit
	tokens TokenCounter
}

// New creates a TextChunker that emits chunks of at most maxLen characters
func New(maxLen int, opts ...Option) (*TextChunker, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxLen, maxLen)
	}

	c := &TextChunker{
		maxLen: maxLen,
		unit:   UnitRunes,
		tokens: HeuristicCounter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MaxLen returns the configured maximum chunk length
func (c *TextChunker) MaxLen() int {
	return c.maxLen
}

// Unit returns the configured character unit
func (c *TextChunker) Unit() Unit {
	return c.unit
}

// Chunks returns the chunk sequence of text. The sequence is lazy and can be ranged
// over any number of times; each iteration rescans text from the start.
func (c *TextChunker) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for s := range c.spans(text) {
			if !yield(s.content) {
				return
			}
		}
	}
}

// Split returns all chunks of text. Empty or whitespace-only text yields no chunks.
func (c *TextChunker) Split(text string) []string {
	chunks := make([]string, 0)
	for chunk := range c.Chunks(text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// ChunkText returns the chunks of text with position, hash and token metadata
func (c *TextChunker) ChunkText(text string) []*types.Chunk {
	chunks := make([]*types.Chunk, 0)
	for s := range c.spans(text) {
		chunk := &types.Chunk{
			Index:       len(chunks),
			Content:     s.content,
			StartOffset: s.start,
			EndOffset:   s.end,
			TokenCount:  c.tokens.Count(s.content),
		}
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}
	return chunks
}

// span is one emitted chunk; start and end are character offsets into the text
type span struct {
	content    string
	start, end int
}

// spans runs the scan. All scan state is local to one iteration.
func (c *TextChunker) spans(text string) iter.Seq[span] {
	return func(yield func(span) bool) {
		bounds := c.boundaries(text)
		n := len(bounds) - 1
		// A cluster is whitespace only if all of its runes are; " \u0301" is content
		space := func(i int) bool {
			return strings.TrimFunc(text[bounds[i]:bounds[i+1]], unicode.IsSpace) == ""
		}

		pos := 0
		for pos < n {
			// Boundary whitespace is never part of a chunk
			for pos < n && space(pos) {
				pos++
			}
			if pos >= n {
				return
			}

			end := n
			if n-pos > c.maxLen {
				end = c.cutPoint(pos, space)
			}
			next := end

			// Trim trailing whitespace
			for end > pos && space(end-1) {
				end--
			}
			if end > pos {
				if !yield(span{content: text[bounds[pos]:bounds[end]], start: pos, end: end}) {
					return
				}
			}
			pos = next
		}
	}
}

// cutPoint picks the end of a chunk starting at pos when the remaining text is longer than maxLen.
// Characters [pos, cut) fit; the character at cut would exceed maxLen.
func (c *TextChunker) cutPoint(pos int, space func(int) bool) int {
	cut := pos + c.maxLen
	if space(cut) || space(cut-1) {
		return cut
	}

	// Inside a word: back off to the nearest preceding whitespace
	for j := cut - 1; j > pos; j-- {
		if space(j) {
			return j
		}
	}

	// A single token longer than maxLen: hard cut
	return cut
}

// boundaries returns the byte offset where each character starts, followed by len(text)
func (c *TextChunker) boundaries(text string) []int {
	if c.unit == UnitGraphemes {
		segments := graphemes.SegmentAll([]byte(text))
		bounds := make([]int, 0, len(segments)+1)
		offset := 0
		for _, seg := range segments {
			bounds = append(bounds, offset)
			offset += len(seg)
		}
		return append(bounds, len(text))
	}

	bounds := make([]int, 0, len(text)+1)
	for i := range text {
		bounds = append(bounds, i)
	}
	return append(bounds, len(text))
}

// NormalizeWhitespace replaces line breaks and tabs with single spaces so a corpus
// read from a file chunks the same way as the same text on one line
func NormalizeWhitespace(text string) string {
	return whitespaceReplacer.Replace(text)
}

var whitespaceReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")
