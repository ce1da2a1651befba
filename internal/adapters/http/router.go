// Package httpadapter exposes scene search and the weight admin surface
// over HTTP.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
	"github.com/jangwonlee-rptly/heimdex-search/internal/core/ports"
	"github.com/jangwonlee-rptly/heimdex-search/internal/core/usecase"
	"github.com/jangwonlee-rptly/heimdex-search/internal/observability/metrics"
)

const (
	displayWeightStep     = 0.05
	displayWeightDecimals = 1
	backpressureWait      = 50 * time.Millisecond
)

type Router struct {
	searcher ports.SceneSearcher
	weights  *usecase.WeightStore
	scenes   ports.SceneReader
	notifier ports.ConfigNotifier
	metrics  *metrics.HTTPServerMetrics

	service     string
	adminAPIKey string

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type Options struct {
	Service     string
	AdminAPIKey string

	Scenes   ports.SceneReader
	Notifier ports.ConfigNotifier
	Metrics  *metrics.HTTPServerMetrics

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(searcher ports.SceneSearcher, weights *usecase.WeightStore, options Options) *Router {
	service := options.Service
	if service == "" {
		service = "api"
	}
	return &Router{
		searcher:       searcher,
		weights:        weights,
		scenes:         options.Scenes,
		notifier:       options.Notifier,
		metrics:        options.Metrics,
		service:        service,
		adminAPIKey:    options.AdminAPIKey,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/search/weights", rt.getWeights)
	mux.HandleFunc("/v1/search/weights/", rt.weightsSubtree)
	if rt.scenes != nil {
		mux.HandleFunc("/v1/scenes/", rt.getSceneByID)
	}
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result, err := rt.searcher.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, result.VisualModeUsed, result.Total, len(result.Results), time.Since(start))
		if result.RerankOutcome != "" {
			rt.metrics.RecordRerankOutcome(rt.service, result.RerankOutcome)
		}
		if result.VisualFallback != "" {
			rt.metrics.RecordVisualFallback(rt.service, result.VisualFallback)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getSceneByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/scenes/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scene id is required"})
		return
	}

	scene, err := rt.scenes.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

func (rt *Router) getWeights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"weights": rt.weights.DisplayWeights(displayWeightStep, displayWeightDecimals),
		"presets": rt.weights.PresetNames(),
	})
}

// weightsSubtree dispatches /v1/search/weights/preset and
// /v1/search/weights/{channel}.
func (rt *Router) weightsSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/search/weights/")
	if rest == "preset" {
		rt.applyPreset(w, r)
		return
	}
	rt.updateWeight(w, r, rest)
}

func (rt *Router) updateWeight(w http.ResponseWriter, r *http.Request, channel string) {
	if r.Method != http.MethodPut {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !rt.authorizeAdmin(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if channel == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel is required"})
		return
	}

	var req struct {
		Value   *float64 `json:"value"`
		Percent string   `json:"percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var value float64
	switch {
	case req.Percent != "":
		parsed, err := usecase.ParsePercent(req.Percent)
		if err != nil {
			writeError(w, err)
			return
		}
		value = parsed
	case req.Value != nil:
		value = *req.Value
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value or percent is required"})
		return
	}

	if _, err := rt.weights.UpdateChannel(channel, value); err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordWeightUpdate(rt.service, "api")
	}
	rt.notifyWeightsChanged(r)

	writeJSON(w, http.StatusOK, map[string]any{
		"weights": rt.weights.DisplayWeights(displayWeightStep, displayWeightDecimals),
	})
}

func (rt *Router) applyPreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !rt.authorizeAdmin(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preset name is required"})
		return
	}

	if _, err := rt.weights.ApplyPreset(req.Name); err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordWeightUpdate(rt.service, "preset")
	}
	rt.notifyWeightsChanged(r)

	writeJSON(w, http.StatusOK, map[string]any{
		"preset":  req.Name,
		"weights": rt.weights.DisplayWeights(displayWeightStep, displayWeightDecimals),
	})
}

// notifyWeightsChanged fans the change out to the other replicas. The local
// update already took effect, so a publish failure is logged, not surfaced.
func (rt *Router) notifyWeightsChanged(r *http.Request) {
	if rt.notifier == nil {
		return
	}
	if err := rt.notifier.PublishWeightsReloaded(r.Context()); err != nil {
		slog.Warn("weights reload publish failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
	}
}

// authorizeAdmin guards the mutating weight endpoints. With no key
// configured the admin surface stays closed.
func (rt *Router) authorizeAdmin(r *http.Request) bool {
	if rt.adminAPIKey == "" {
		return false
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return strings.TrimSpace(token) == rt.adminAPIKey
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
