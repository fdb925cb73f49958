package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pgregory.net/rapid"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	rr := httptest.NewRecorder()
	SecurityHeadersMiddleware(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/timer", nil))

	for header, expected := range SecurityHeaders {
		if got := rr.Header().Get(header); got != expected {
			t.Errorf("header %s = %q, want %q", header, got, expected)
		}
	}
	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestSecurityHeaders_Property_EveryResponse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		method := rapid.SampledFrom([]string{"GET", "POST", "DELETE"}).Draw(t, "method")
		path := "/" + rapid.StringMatching(`[a-z]{1,10}(/[a-z]{1,10})?`).Draw(t, "path")
		statusCode := rapid.SampledFrom([]int{200, 201, 204, 400, 404, 409, 422, 500}).Draw(t, "statusCode")

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(statusCode)
		})

		rr := httptest.NewRecorder()
		SecurityHeadersMiddleware(handler).ServeHTTP(rr, httptest.NewRequest(method, path, nil))

		for header, expected := range SecurityHeaders {
			if got := rr.Header().Get(header); got != expected {
				t.Fatalf("header %s = %q, want %q", header, got, expected)
			}
		}
	})
}
