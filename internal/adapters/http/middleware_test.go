package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddlewareGeneratesID(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/search/weights", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if seen == "" {
		t.Fatalf("expected generated request id in context")
	}
	if got := res.Header().Get(requestIDHeader); got != seen {
		t.Fatalf("response header %q != context id %q", got, seen)
	}
}

func TestRequestIDMiddlewareKeepsCallerID(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/search/weights", nil)
	req.Header.Set(requestIDHeader, "caller-trace-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if seen != "caller-trace-1" {
		t.Fatalf("caller request id must be kept, got %q", seen)
	}
}

func TestIsProbePath(t *testing.T) {
	if !isProbePath("/healthz") || !isProbePath("/metrics") {
		t.Fatalf("probe paths must be recognized")
	}
	if isProbePath("/v1/search") {
		t.Fatalf("search traffic is not a probe")
	}
}
