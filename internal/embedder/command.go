package embedder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dshills/embedtext/pkg/types"
)

// Output markers written by framed embedding programs
const (
	BeginMarker = "<begin>"
	EndMarker   = "<end>"
)

// DefaultCommand is the embedding program run when none is configured
var DefaultCommand = []string{"python3", "embed.py"}

// CommandProvider runs an external program once per text, passing the text as the
// last argument, and parses the vector it prints on stdout
type CommandProvider struct {
	argv    []string
	model   string
	timeout time.Duration
	cache   *Cache
}

// NewCommandProvider creates an embedder backed by an external program
func NewCommandProvider(cfg Config, cache *Cache) (*CommandProvider, error) {
	argv := cfg.Command
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	if strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidInput)
	}

	model := cfg.Model
	if model == "" {
		model = strings.Join(argv, " ")
	}

	return &CommandProvider{
		argv:    append([]string(nil), argv...),
		model:   model,
		timeout: cfg.timeout(),
		cache:   cache,
	}, nil
}

func (c *CommandProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	key := cacheKey(c.model, req.Text)
	if c.cache != nil {
		if emb, ok := c.cache.Get(key); ok {
			return emb, nil
		}
	}

	vector, err := c.run(ctx, req.Text)
	if err != nil {
		return nil, err
	}

	emb := &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  ProviderCommand,
		Model:     c.model,
		Hash:      hash,
	}

	if c.cache != nil {
		c.cache.Set(key, emb)
	}

	return emb, nil
}

func (c *CommandProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return batchViaSingle(ctx, c, req)
}

func (c *CommandProvider) run(ctx context.Context, text string) (types.Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append(append([]string(nil), c.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, c.argv[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Stop waiting on pipes held open by grandchildren once the program is killed
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s timed out after %s", ErrProviderFailed, c.argv[0], c.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s: %v: %s", ErrProviderFailed, c.argv[0], err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailed, c.argv[0], err)
	}

	return ParseCommandOutput(stdout.String())
}

// ParseCommandOutput extracts a vector from program output. Anything before
// BeginMarker is discarded and EndMarker ends the vector; output without markers
// is parsed whole.
func ParseCommandOutput(out string) (types.Vector, error) {
	if i := strings.Index(out, BeginMarker); i >= 0 {
		out = out[i+len(BeginMarker):]
	}
	if i := strings.Index(out, EndMarker); i >= 0 {
		out = out[:i]
	}

	vector, err := types.ParseVector(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return vector, nil
}

func (c *CommandProvider) Dimension() int {
	return 0
}

func (c *CommandProvider) Provider() string {
	return ProviderCommand
}

func (c *CommandProvider) Model() string {
	return c.model
}

func (c *CommandProvider) Close() error {
	return nil
}
