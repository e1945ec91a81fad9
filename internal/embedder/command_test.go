package embedder

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/embedtext/pkg/types"
)

func TestParseCommandOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    types.Vector
		wantErr bool
	}{
		{"bare", "0.5 -1 2 \n", types.Vector{0.5, -1, 2}, false},
		{"framed", "<begin>\n0.5 0.25 <end>", types.Vector{0.5, 0.25}, false},
		{"diagnostics before frame", "bert_load_from_file: vocab = 30522\n<begin>\n1 2 3 <end>", types.Vector{1, 2, 3}, false},
		{"trailing text after end", "<begin>\n1 <end>\nbye", types.Vector{1}, false},
		{"empty", "", nil, true},
		{"empty frame", "<begin>\n<end>", nil, true},
		{"garbage", "not a vector", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommandOutput(tt.out)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandProvider_PassesTextAsLastArgument(t *testing.T) {
	requireShell(t)

	// sh -c script argv0 text: $1 is the text; print its length framed
	script := `echo "loading model"; echo "<begin>"; printf "%s 1 " "${#1}"; printf "<end>"`
	p, err := NewCommandProvider(Config{Command: []string{"sh", "-c", script, "embed"}}, NewCache(10))
	require.NoError(t, err)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, types.Vector{11, 1}, emb.Vector)
	assert.Equal(t, 2, emb.Dimension)
	assert.Equal(t, ProviderCommand, emb.Provider)

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "abc"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, types.Vector{1, 1}, resp.Embeddings[0].Vector)
	assert.Equal(t, types.Vector{3, 1}, resp.Embeddings[1].Vector)
}

func TestCommandProvider_Failure(t *testing.T) {
	requireShell(t)

	p, err := NewCommandProvider(Config{Command: []string{"sh", "-c", "echo model missing >&2; exit 3", "embed"}}, nil)
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	require.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "model missing")
}

func TestCommandProvider_Timeout(t *testing.T) {
	requireShell(t)

	p, err := NewCommandProvider(Config{
		Command: []string{"sh", "-c", "sleep 5", "embed"},
		Timeout: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	require.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandProvider_MalformedOutput(t *testing.T) {
	requireShell(t)

	p, err := NewCommandProvider(Config{Command: []string{"sh", "-c", "echo nope", "embed"}}, nil)
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestNewCommandProvider_Defaults(t *testing.T) {
	p, err := NewCommandProvider(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCommand, p.argv)
	assert.Equal(t, "python3 embed.py", p.Model())
	assert.Equal(t, DefaultTimeout, p.timeout)

	_, err = NewCommandProvider(Config{Command: []string{" "}}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
