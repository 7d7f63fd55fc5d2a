package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"raggy/internal/contextutil"
	"raggy/internal/metrics"
)

// DefaultConcurrency is the number of embedding requests kept in flight.
const DefaultConcurrency = 4

var errNoEmbedding = errors.New("response has no numeric embedding array")

// EmbeddingsClient talks to an Ollama-style /api/embeddings endpoint, one
// request per text.
type EmbeddingsClient struct {
	BaseURL     string
	Model       string
	Concurrency int
	client      *http.Client
	limiter     *rate.Limiter
	metrics     *metrics.Metrics
}

// Option configures an EmbeddingsClient.
type Option func(*EmbeddingsClient)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(e *EmbeddingsClient) { e.client = c }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(e *EmbeddingsClient) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *EmbeddingsClient) { e.metrics = m }
}

// NewEmbeddingsClient creates a new embeddings client.
func NewEmbeddingsClient(baseURL, model string, concurrency int, opts ...Option) *EmbeddingsClient {
	c := &EmbeddingsClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       model,
		Concurrency: max(1, concurrency),
		client:      http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmbeddingsRequest is the request payload of /api/embeddings.
type EmbeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingData represents a single embedding in an OpenAI-shaped response.
type EmbeddingData struct {
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse accepts both the Ollama and the OpenAI response shapes.
type EmbeddingsResponse struct {
	Embedding []float64       `json:"embedding"`
	Data      []EmbeddingData `json:"data"`
}

func (r EmbeddingsResponse) vector() []float64 {
	if len(r.Embedding) > 0 {
		return r.Embedding
	}
	if len(r.Data) > 0 && len(r.Data[0].Embedding) > 0 {
		return r.Data[0].Embedding
	}
	return nil
}

// Embed embeds every text with up to Concurrency requests in flight. Workers
// pull the next index from a shared cursor and write results back by
// position. Failures leave an empty slot and are logged.
func (c *EmbeddingsClient) Embed(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out
	}
	logger := contextutil.LoggerFromContext(ctx)

	var cursor atomic.Int64
	var g errgroup.Group
	for range min(c.Concurrency, len(texts)) {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(texts) {
					return nil
				}
				vec, err := c.EmbedOne(ctx, texts[i])
				c.metrics.EmbeddingRequest(err == nil)
				if err != nil {
					logger.WarnContext(ctx, "embedding failed", "index", i, "model", c.Model, "error", err)
					out[i] = []float32{}
					continue
				}
				out[i] = vec
			}
		})
	}
	_ = g.Wait()
	return out
}

// EmbedOne sends a single embedding request.
func (c *EmbeddingsClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(EmbeddingsRequest{Model: c.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var er EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	data := er.vector()
	if len(data) == 0 {
		return nil, errNoEmbedding
	}

	vec := make([]float32, len(data))
	for j, v := range data {
		vec[j] = float32(v)
	}
	return vec, nil
}
