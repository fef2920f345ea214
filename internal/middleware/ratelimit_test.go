package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware_UnlimitedGeneral(t *testing.T) {
	// generalRPM = 0 (unlimited) and authRPM = 1
	mw := NewRateLimitMiddleware(0, 1)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/staff-orders/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	mw := NewRateLimitMiddleware(0, 1)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Burst of 1: the first login passes, the second is throttled.
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/api/users/login/", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/users/login/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"Request was throttled."}`, rec2.Body.String())

	// Another client has its own bucket.
	req3 := httptest.NewRequest(http.MethodPost, "/api/users/login/", nil)
	req3.Header.Set("X-Forwarded-For", "10.0.0.9, 10.0.0.1")
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	assert.Equal(t, http.StatusOK, rec3.Code)
}
