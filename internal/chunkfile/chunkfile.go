// Package chunkfile reads and writes the chunk embedding file produced by corpus indexing.
//
// Each chunk occupies two lines: the chunk text, then its vector as decimal values each
// followed by a single space. Records appear in corpus order.
//
//	the quick brown fox
//	0.0123 -0.4 0.5 
//	jumps over the lazy dog
//	0.25 0.125 -1 
package chunkfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/embedtext/pkg/types"
)

var (
	// ErrOddLines is returned when the file ends after a text line with no vector line
	ErrOddLines = errors.New("chunk file has a text line without a vector line")
	// ErrMalformedVector is returned when a vector line does not parse
	ErrMalformedVector = errors.New("malformed vector line")
	// ErrEmptyText is returned when writing a record whose text is blank
	ErrEmptyText = errors.New("chunk text cannot be empty")
)

// Record is one chunk and its embedding
type Record struct {
	Text   string
	Vector types.Vector
	Line   int // 1-based line number of the text line
}

// Writer appends records to an underlying writer. Call Flush when done.
type Writer struct {
	w     *bufio.Writer
	count int
}

// NewWriter creates a Writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Write appends one record. Line breaks inside text are replaced with spaces so
// the two-line framing holds.
func (w *Writer) Write(text string, vec types.Vector) error {
	text = lineBreaks.Replace(text)
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if len(vec) == 0 {
		return types.ErrEmptyVector
	}

	if _, err := w.w.WriteString(text); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}

	buf := make([]byte, 0, 16)
	for _, v := range vec {
		buf = strconv.AppendFloat(buf[:0], float64(v), 'g', -1, 32)
		buf = append(buf, ' ')
		if _, err := w.w.Write(buf); err != nil {
			return err
		}
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}

	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Flush writes buffered data to the underlying writer
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader reads records in file order
type Reader struct {
	r    *bufio.Reader
	line int
}

// NewReader creates a Reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF when the file is exhausted
func (r *Reader) Next() (Record, error) {
	text, err := r.readLine()
	if err != nil {
		return Record{}, err
	}
	rec := Record{Text: text, Line: r.line}

	values, err := r.readLine()
	if errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("%w: line %d", ErrOddLines, rec.Line)
	}
	if err != nil {
		return Record{}, err
	}

	vec, err := types.ParseVector(values)
	if err != nil {
		return Record{}, fmt.Errorf("%w: line %d: %v", ErrMalformedVector, r.line, err)
	}
	rec.Vector = vec
	return rec, nil
}

// readLine returns the next line without its terminator. A final line lacking
// a newline is still returned; io.EOF follows on the next call.
func (r *Reader) readLine() (string, error) {
	line, err := r.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	r.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// ReadAll reads every record from r
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	records := make([]Record, 0)
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
