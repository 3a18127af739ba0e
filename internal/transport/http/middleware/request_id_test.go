package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"guardhr/internal/requestctx"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id in context")
		}
		if ip := requestctx.GetClientIP(r.Context()); ip != "192.0.2.1" {
			t.Fatalf("expected client ip 192.0.2.1, got %q", ip)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "ui-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "ui-42" {
		t.Fatalf("expected ui-42, got %q", seen)
	}
}
