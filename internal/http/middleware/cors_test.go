package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantHandler bool
	}{
		{name: "listed origin", allowed: []string{"https://chat.example.com"}, method: http.MethodPost, origin: "https://chat.example.com", wantOrigin: "https://chat.example.com", wantStatus: http.StatusOK, wantHandler: true},
		{name: "listed origin with trailing slash and case", allowed: []string{"https://Chat.Example.com/"}, method: http.MethodGet, origin: "https://chat.example.com", wantOrigin: "https://chat.example.com", wantStatus: http.StatusOK, wantHandler: true},
		{name: "unknown origin", allowed: []string{"https://chat.example.com"}, method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK, wantHandler: true},
		{name: "wildcard", allowed: []string{"*"}, method: http.MethodGet, origin: "https://anything.example", wantOrigin: "https://anything.example", wantStatus: http.StatusOK, wantHandler: true},
		{name: "no origin header", allowed: []string{"*"}, method: http.MethodGet, wantStatus: http.StatusOK, wantHandler: true},
		{name: "preflight", allowed: []string{"https://chat.example.com"}, method: http.MethodOptions, origin: "https://chat.example.com", preflight: true, wantOrigin: "https://chat.example.com", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(tt.method, "/message/create", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()

			CORS(tt.allowed)(okHandler(&called)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantHandler, called)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, corsAllowHeaders, rec.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}
