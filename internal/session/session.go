// Package session runs the line-oriented embedding loop: one text per input line,
// one vector per response.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/pkg/types"
)

// ErrEmptyRequest is returned for a blank request line
var ErrEmptyRequest = errors.New("empty request")

// Session embeds requests with a single embedder
type Session struct {
	embedder embedder.Embedder
	framed   bool
}

// Option configures a Session
type Option func(*Session)

// WithFraming selects framed (<begin>/<end>) or bare responses for Run. Default framed.
func WithFraming(framed bool) Option {
	return func(s *Session) {
		s.framed = framed
	}
}

// New creates a Session
func New(emb embedder.Embedder, opts ...Option) *Session {
	s := &Session{embedder: emb, framed: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadRequest reads one request line without its line ending.
// A final line without a newline is returned before io.EOF.
func ReadRequest(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Process embeds one request
func (s *Session) Process(ctx context.Context, text string) (types.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyRequest
	}

	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, err
	}
	if len(emb.Vector) == 0 {
		return nil, types.ErrEmptyVector
	}
	return emb.Vector, nil
}

// WriteResponse writes vec. Framed output is the marker line, each value followed
// by a space, then the end marker with no newline. Bare output is the values
// separated by spaces and a newline.
func WriteResponse(w io.Writer, vec types.Vector, framed bool) error {
	if !framed {
		_, err := io.WriteString(w, vec.Format()+"\n")
		return err
	}

	var b strings.Builder
	b.WriteString(embedder.BeginMarker)
	b.WriteByte('\n')
	for _, v := range vec {
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		b.WriteByte(' ')
	}
	b.WriteString(embedder.EndMarker)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteError writes err as a single line
func WriteError(w io.Writer, err error) error {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	_, werr := fmt.Fprintf(w, "error: %s\n", msg)
	return werr
}

// Run serves requests from r until EOF. Blank lines get no response. Failed
// requests are answered with an error line and the loop continues; read and
// write failures end it.
func (s *Session) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	in := bufio.NewReader(r)
	out := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, err := ReadRequest(in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		vec, err := s.Process(ctx, text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			err = WriteError(out, err)
		} else {
			err = WriteResponse(out, vec, s.framed)
		}
		if err == nil {
			err = out.Flush()
		}
		if err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
}
