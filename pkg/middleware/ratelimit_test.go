package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doRequest(handler http.HandlerFunc, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/payment/zarinpal/redirect", nil)
	req.RemoteAddr = remoteAddr
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder.Code
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	defer rl.Shutdown()

	handler := rl.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:55000"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "10.0.0.1:55000"))
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Shutdown()

	handler := rl.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:55000"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "10.0.0.1:55001"))
	// A different IP gets its own limiter; a different port does not
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.2:55000"))
}
