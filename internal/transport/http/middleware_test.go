package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"lexgate/pkg/requestcontext"
)

func TestAccessMethodFrom(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"no user agent", "", "api"},
		{"desktop browser", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "web"},
		{"mobile browser", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", "mobile"},
		{"firefox", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", "web"},
		{"curl", "curl/8.4.0", "api"},
		{"sdk client", "lexgate-go-sdk/1.2.0", "api"},
		{"crawler", "Googlebot/2.1 (+http://www.google.com/bot.html)", "api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accessMethodFrom(tt.ua))
		})
	}
}

func TestClientIPFromRequest(t *testing.T) {
	t.Run("x-forwarded-for takes first hop", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", clientIPFromRequest(r))
	})

	t.Run("x-real-ip fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", "198.51.100.4")
		assert.Equal(t, "198.51.100.4", clientIPFromRequest(r))
	})

	t.Run("remote addr strips port", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.9:54021"
		assert.Equal(t, "192.0.2.9", clientIPFromRequest(r))
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	})

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequestID(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagates caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		RequestID(next).ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "upstream-id", seen)
	})
}
