// Package clip talks to the external visual-embedding service. The service
// maps query text into CLIP space and scores a stored-scene batch against a
// query embedding; every request is HMAC-signed with a shared secret.
package clip

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jangwonlee-rptly/heimdex-search/internal/infrastructure/resilience"
)

type Options struct {
	Timeout    time.Duration
	MaxRetries int
	Executor   *resilience.Executor
}

type Client struct {
	baseURL    string
	secret     string
	timeout    time.Duration
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, secret string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	executor := options.Executor
	if executor == nil {
		cfg := resilience.DefaultConfig()
		// MaxRetries counts retries, the executor counts attempts.
		cfg.RetryMaxAttempts = options.MaxRetries + 1
		executor = resilience.NewExecutor(cfg)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{"text": text}

	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	err := c.executor.Execute(ctx, "clip.embed_text", func(callCtx context.Context) error {
		return c.postSigned(callCtx, "/embed-text", request, &response, "embed-text")
	}, classifyClipError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("clip embed-text", err)
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("clip embed-text: empty embedding")
	}
	return response.Embedding, nil
}

func (c *Client) BatchScore(ctx context.Context, embedding []float32, sceneIDs []string) (map[string]float64, error) {
	if len(sceneIDs) == 0 {
		return map[string]float64{}, nil
	}
	request := map[string]any{
		"query_embedding": embedding,
		"candidate_ids":   sceneIDs,
	}

	var response struct {
		Scores map[string]float64 `json:"scores"`
	}
	err := c.executor.Execute(ctx, "clip.batch_score", func(callCtx context.Context) error {
		return c.postSigned(callCtx, "/batch-score", request, &response, "batch-score")
	}, classifyClipError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("clip batch-score", err)
	}
	if response.Scores == nil {
		return map[string]float64{}, nil
	}
	return response.Scores, nil
}
