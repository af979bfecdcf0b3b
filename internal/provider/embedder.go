package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/ExpressedAi/Pinkmemory/internal/config"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EmbedClient talks to an Ollama-compatible embedding endpoint. Repeated
// lookups for the same text hit an in-process cache instead of the network.
type EmbedClient struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	cache      *ristretto.Cache
}

type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewEmbedClient(cfg config.ProviderConfig) (*EmbedClient, error) {
	entries := cfg.EmbedCacheEntries
	if entries <= 0 {
		entries = 512
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: entries * 10,
		MaxCost:     entries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embed cache: %w", err)
	}

	return &EmbedClient{
		baseURL:    cfg.EmbedURL,
		apiKey:     cfg.EmbedAPIKey,
		model:      cfg.EmbedModel,
		dimensions: cfg.EmbedDimensions,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cache:      cache,
	}, nil
}

// Embed generates an embedding for a single text.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(c.cacheKey(text)); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	results, err := c.embedRemote(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &ProviderError{Provider: "embed", Err: fmt.Errorf("empty embedding response")}
	}

	c.cache.Set(c.cacheKey(text), results[0], 1)
	// Set is buffered; Wait makes the entry visible to the next lookup.
	c.cache.Wait()
	return results[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single request.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results, err := c.embedRemote(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(results) != len(texts) {
		return nil, &ProviderError{Provider: "embed", Err: fmt.Errorf("got %d embeddings for %d texts", len(results), len(texts))}
	}
	for i, text := range texts {
		c.cache.Set(c.cacheKey(text), results[i], 1)
	}
	c.cache.Wait()
	return results, nil
}

func (c *EmbedClient) embedRemote(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embedRequest{
		Model: c.model,
		Input: texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{Err: ctx.Err()}
		}
		return nil, &ProviderError{Provider: "embed", Err: fmt.Errorf("send embed request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Provider: "embed", Reason: fmt.Sprintf("credential rejected (status %d)", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "embed", Err: fmt.Errorf("embed failed (status %d): %s", resp.StatusCode, string(respBody))}
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ProviderError{Provider: "embed", Err: fmt.Errorf("decode embed response: %w", err)}
	}

	return result.Embeddings, nil
}

func (c *EmbedClient) cacheKey(text string) string {
	return c.model + "\x00" + text
}

// Dimensions returns the expected embedding width.
func (c *EmbedClient) Dimensions() int {
	return c.dimensions
}
