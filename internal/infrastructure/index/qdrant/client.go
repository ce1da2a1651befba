// Package qdrant retrieves scene candidates from a Qdrant collection that
// carries named dense and visual vectors plus a sparse keyword vector per
// scene. The collection is written by the ingestion pipeline; this client
// only searches it.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

const (
	vectorNameDense  = "dense"
	vectorNameVisual = "visual"
	vectorNameSparse = "keyword"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Retrieve runs one search per active channel and merges the hits into a
// single pool keyed by scene ID. A scene found by several channels keeps
// each channel's raw score; channels that never saw it stay absent so
// fusion treats them as zero.
func (c *Client) Retrieve(ctx context.Context, query domain.RetrievalQuery) (domain.CandidatePool, error) {
	limit := query.PoolSize
	if limit <= 0 {
		limit = 100
	}

	type channelSearch struct {
		channel string
		vector  any
	}
	searches := make([]channelSearch, 0, 3)
	if len(query.DenseVector) > 0 {
		searches = append(searches, channelSearch{
			channel: domain.ChannelDense,
			vector:  map[string]any{"name": vectorNameDense, "vector": query.DenseVector},
		})
	}
	if sparse := encodeSparseQuery(query.Text); len(sparse.Indices) > 0 {
		searches = append(searches, channelSearch{
			channel: domain.ChannelKeyword,
			vector:  map[string]any{"name": vectorNameSparse, "vector": sparse},
		})
	}
	if len(query.VisualVector) > 0 {
		searches = append(searches, channelSearch{
			channel: domain.ChannelVisual,
			vector:  map[string]any{"name": vectorNameVisual, "vector": query.VisualVector},
		})
	}

	order := make([]string, 0, limit)
	merged := make(map[string]*domain.Candidate, limit)
	for _, search := range searches {
		hits, err := c.searchChannel(ctx, search.vector, limit, query.Filter)
		if err != nil {
			return nil, fmt.Errorf("%s channel: %w", search.channel, err)
		}
		for _, hit := range hits {
			candidate, ok := merged[hit.sceneID]
			if !ok {
				candidate = &domain.Candidate{
					SceneID:       hit.sceneID,
					ChannelScores: make(map[string]float64, len(searches)),
				}
				merged[hit.sceneID] = candidate
				order = append(order, hit.sceneID)
			}
			candidate.ChannelScores[search.channel] = hit.score
		}
	}

	pool := make(domain.CandidatePool, 0, len(order))
	for _, sceneID := range order {
		pool = append(pool, *merged[sceneID])
	}
	return pool, nil
}

type sceneHit struct {
	sceneID string
	score   float64
}

func (c *Client) searchChannel(
	ctx context.Context,
	vector any,
	limit int,
	filter domain.SearchFilter,
) ([]sceneHit, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter.VideoID != "" {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key": "video_id",
					"match": map[string]any{
						"value": filter.VideoID,
					},
				},
			},
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return nil, fmt.Errorf("qdrant search status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]sceneHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		sceneID := getStringPayload(r.Payload, "scene_id")
		if sceneID == "" {
			continue
		}
		hits = append(hits, sceneHit{sceneID: sceneID, score: r.Score})
	}
	return hits, nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
