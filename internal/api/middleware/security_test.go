package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		isDevelopment bool
		checkHeaders  func(t *testing.T, resp *httptest.ResponseRecorder)
	}{
		{
			name: "production mode sets HSTS",
			checkHeaders: func(t *testing.T, resp *httptest.ResponseRecorder) {
				hsts := resp.Header().Get("Strict-Transport-Security")
				assert.Contains(t, hsts, "max-age=31536000")
				assert.Contains(t, hsts, "includeSubDomains")
			},
		},
		{
			name:          "development mode skips HSTS",
			isDevelopment: true,
			checkHeaders: func(t *testing.T, resp *httptest.ResponseRecorder) {
				assert.Empty(t, resp.Header().Get("Strict-Transport-Security"))
			},
		},
		{
			name: "forbids framing",
			checkHeaders: func(t *testing.T, resp *httptest.ResponseRecorder) {
				assert.Equal(t, "DENY", resp.Header().Get("X-Frame-Options"))
				assert.Contains(t, resp.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
			},
		},
		{
			name: "disables sniffing and caching",
			checkHeaders: func(t *testing.T, resp *httptest.ResponseRecorder) {
				assert.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))
				assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))
			},
		},
		{
			name: "isolates cross-origin access",
			checkHeaders: func(t *testing.T, resp *httptest.ResponseRecorder) {
				assert.Equal(t, "same-origin", resp.Header().Get("Cross-Origin-Opener-Policy"))
				assert.Equal(t, "same-origin", resp.Header().Get("Cross-Origin-Resource-Policy"))
				assert.Equal(t, "same-origin", resp.Header().Get("Referrer-Policy"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(SecurityHeaders(SecurityHeadersConfig{IsDevelopment: tt.isDevelopment}))
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "OK")
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, http.StatusOK, resp.Code)
			tt.checkHeaders(t, resp)
		})
	}
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/documents", SanitizePath("/api/v1/documents?q=secret"))
	assert.Equal(t, "/a b", SanitizePath("/a\nb"))
}

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("Cookie", "auth_token=abc")
	h.Set("User-Agent", "curl/8.0\r\nInjected: 1")

	out := SanitizeHeaders(h)
	assert.Equal(t, []string{"<redacted>"}, out["Authorization"])
	assert.Equal(t, []string{"<redacted>"}, out["Cookie"])
	assert.NotContains(t, out["User-Agent"][0], "\n")
	assert.Nil(t, SanitizeHeaders(nil))
}
