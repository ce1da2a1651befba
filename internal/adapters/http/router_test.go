package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
	"github.com/jangwonlee-rptly/heimdex-search/internal/core/usecase"
	"github.com/jangwonlee-rptly/heimdex-search/internal/observability/metrics"
)

type searcherFake struct {
	lastRequest domain.SearchRequest
	result      *domain.SearchResult
	err         error
}

func (f *searcherFake) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type notifierFake struct {
	published int
}

func (f *notifierFake) PublishWeightsReloaded(context.Context) error {
	f.published++
	return nil
}

func (f *notifierFake) SubscribeWeightsReloaded(ctx context.Context, _ func(context.Context) error) error {
	<-ctx.Done()
	return nil
}

func newTestWeights(t *testing.T) *usecase.WeightStore {
	t.Helper()
	store, err := usecase.NewWeightStore(domain.WeightVector{
		{Name: domain.ChannelDense, Value: 0.5},
		{Name: domain.ChannelKeyword, Value: 0.3},
		{Name: domain.ChannelVisual, Value: 0.2},
	}, map[string]map[string]float64{
		"dialogue": {domain.ChannelDense: 0.4, domain.ChannelKeyword: 0.5, domain.ChannelVisual: 0.1},
	})
	if err != nil {
		t.Fatalf("NewWeightStore() error = %v", err)
	}
	return store
}

func newTestRouter(t *testing.T, searcher *searcherFake, notifier *notifierFake) http.Handler {
	t.Helper()
	options := Options{AdminAPIKey: "admin-key"}
	if notifier != nil {
		options.Notifier = notifier
	}
	return NewRouter(searcher, newTestWeights(t), options).Handler()
}

func TestSearchEndpointReturnsResult(t *testing.T) {
	searcher := &searcherFake{result: &domain.SearchResult{
		Query:          "red car",
		Results:        []domain.SceneResult{{SceneSummary: domain.SceneSummary{ID: "s1"}, Score: 0.9}},
		Total:          1,
		VisualModeUsed: "recall",
	}}
	handler := newTestRouter(t, searcher, nil)

	body := strings.NewReader(`{"query":"red car","limit":5,"video_id":"vid-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/search", body)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if searcher.lastRequest.Query != "red car" || searcher.lastRequest.VideoID != "vid-1" {
		t.Fatalf("request not forwarded: %+v", searcher.lastRequest)
	}

	var result domain.SearchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.VisualModeUsed != "recall" || len(result.Results) != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestSearchRecordsPipelineMetrics(t *testing.T) {
	serverMetrics := metrics.NewHTTPServerMetrics("api")
	searcher := &searcherFake{result: &domain.SearchResult{
		Query:          "tteokbokki scene",
		Results:        []domain.SceneResult{},
		VisualModeUsed: "rerank",
		RerankOutcome:  "flat_visual_scores",
	}}
	handler := NewRouter(searcher, newTestWeights(t), Options{Service: "api", Metrics: serverMetrics}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"tteokbokki scene"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	searcher.result = &domain.SearchResult{
		Query:          "red car",
		Results:        []domain.SceneResult{},
		VisualModeUsed: "skip",
		VisualFallback: "batch_score",
	}
	req2 := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"red car"}`))
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res2.Code)
	}

	scrape := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	scrapeRes := httptest.NewRecorder()
	handler.ServeHTTP(scrapeRes, scrape)
	body := scrapeRes.Body.String()
	for _, want := range []string{
		`hdx_search_rerank_outcome_total{outcome="flat_visual_scores",service="api"} 1`,
		`hdx_search_visual_fallback_total{service="api",stage="batch_score"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape missing %q:\n%s", want, body)
		}
	}
}

func TestSearchEndpointMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("empty query")), http.StatusBadRequest},
		{"temporary", domain.WrapError(domain.ErrTemporary, "search", fmt.Errorf("index down")), http.StatusServiceUnavailable},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(t, &searcherFake{err: tc.err}, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"q"}`))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, res.Code)
			}
		})
	}
}

func TestSearchEndpointRejectsBadJSON(t *testing.T) {
	handler := newTestRouter(t, &searcherFake{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

type sceneReaderFake struct {
	scenes map[string]domain.SceneSummary
}

func (f *sceneReaderFake) GetByID(_ context.Context, id string) (*domain.SceneSummary, error) {
	scene, ok := f.scenes[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSceneNotFound, "scene.get", fmt.Errorf("scene not found: %s", id))
	}
	return &scene, nil
}

func TestGetSceneByIDReturnsScene(t *testing.T) {
	scenes := &sceneReaderFake{scenes: map[string]domain.SceneSummary{
		"s1": {ID: "s1", VideoID: "vid-1", StartSec: 10, EndSec: 15},
	}}
	handler := NewRouter(&searcherFake{}, newTestWeights(t), Options{Scenes: scenes}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/scenes/s1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var scene domain.SceneSummary
	if err := json.NewDecoder(res.Body).Decode(&scene); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if scene.ID != "s1" || scene.VideoID != "vid-1" {
		t.Fatalf("scene = %+v", scene)
	}
}

func TestGetSceneByIDMissingSceneIs404(t *testing.T) {
	handler := NewRouter(&searcherFake{}, newTestWeights(t), Options{
		Scenes: &sceneReaderFake{},
	}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/scenes/ghost", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetWeightsListsChannelsAndPresets(t *testing.T) {
	handler := newTestRouter(t, &searcherFake{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/search/weights", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Weights []usecase.DisplayWeight `json:"weights"`
		Presets []string                `json:"presets"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Weights) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(resp.Weights))
	}
	if len(resp.Presets) != 1 || resp.Presets[0] != "dialogue" {
		t.Fatalf("presets = %v", resp.Presets)
	}
}

func TestUpdateWeightRequiresAdminKey(t *testing.T) {
	handler := newTestRouter(t, &searcherFake{}, nil)
	req := httptest.NewRequest(http.MethodPut, "/v1/search/weights/dense", strings.NewReader(`{"value":0.7}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", res.Code)
	}
}

func TestUpdateWeightPublishesReload(t *testing.T) {
	notifier := &notifierFake{}
	handler := newTestRouter(t, &searcherFake{}, notifier)

	req := httptest.NewRequest(http.MethodPut, "/v1/search/weights/dense", strings.NewReader(`{"value":0.7}`))
	req.Header.Set("Authorization", "Bearer admin-key")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if notifier.published != 1 {
		t.Fatalf("expected 1 reload publish, got %d", notifier.published)
	}

	var resp struct {
		Weights []usecase.DisplayWeight `json:"weights"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var sum float64
	for _, weight := range resp.Weights {
		sum += weight.Value
		if weight.Name == domain.ChannelDense && weight.Value != 0.7 {
			t.Fatalf("dense = %f, want 0.7", weight.Value)
		}
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("weights must stay normalized, sum = %f", sum)
	}
}

func TestUpdateWeightAcceptsPercent(t *testing.T) {
	handler := newTestRouter(t, &searcherFake{}, nil)
	req := httptest.NewRequest(http.MethodPut, "/v1/search/weights/keyword", strings.NewReader(`{"percent":"40%"}`))
	req.Header.Set("Authorization", "Bearer admin-key")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

func TestUpdateWeightUnknownChannelIsBadRequest(t *testing.T) {
	handler := newTestRouter(t, &searcherFake{}, nil)
	req := httptest.NewRequest(http.MethodPut, "/v1/search/weights/sparkle", strings.NewReader(`{"value":0.5}`))
	req.Header.Set("Authorization", "Bearer admin-key")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestApplyPresetEndpoint(t *testing.T) {
	notifier := &notifierFake{}
	handler := newTestRouter(t, &searcherFake{}, notifier)

	req := httptest.NewRequest(http.MethodPost, "/v1/search/weights/preset", strings.NewReader(`{"name":"dialogue"}`))
	req.Header.Set("Authorization", "Bearer admin-key")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if notifier.published != 1 {
		t.Fatalf("expected 1 reload publish, got %d", notifier.published)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/v1/search/weights/preset", strings.NewReader(`{"name":"nope"}`))
	req2.Header.Set("Authorization", "Bearer admin-key")
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusBadRequest {
		t.Fatalf("unknown preset expected 400, got %d", res2.Code)
	}
}

func TestAdminSurfaceClosedWithoutConfiguredKey(t *testing.T) {
	handler := NewRouter(&searcherFake{}, newTestWeights(t), Options{}).Handler()
	req := httptest.NewRequest(http.MethodPut, "/v1/search/weights/dense", strings.NewReader(`{"value":0.7}`))
	req.Header.Set("Authorization", "Bearer anything")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no configured key, got %d", res.Code)
	}
}
