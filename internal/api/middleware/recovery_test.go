package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Czechuuuu/szbi/internal/logger"
)

func panicRouter(verbose bool) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(verbose))
	r.GET("/documents/:id", func(c *gin.Context) {
		panic("nil owner for document " + c.Param("id"))
	})
	return r
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		verbose    bool
		wantStack  bool
		wantFields []string
	}{
		{name: "verbose", verbose: true, wantStack: true, wantFields: []string{"request_id", "headers", "<redacted>"}},
		{name: "brief", verbose: false, wantStack: false, wantFields: []string{"request_id"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger.Init(tc.verbose, &buf)
			t.Cleanup(func() { logger.Init(false, nil) })

			req := httptest.NewRequest(http.MethodGet, "/documents/7", nil)
			req.Header.Set("Authorization", "Bearer secret-token")
			w := httptest.NewRecorder()
			panicRouter(tc.verbose).ServeHTTP(w, req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"Wystąpił nieoczekiwany błąd serwera."}`, w.Body.String())

			out := buf.String()
			assert.Contains(t, out, "PANIC: nil owner for document 7")
			assert.NotContains(t, out, "secret-token")
			assert.Equal(t, tc.wantStack, bytes.Contains(buf.Bytes(), []byte("Stacktrace:")))
			for _, f := range tc.wantFields {
				assert.Contains(t, out, f)
			}
		})
	}
}

func TestRecovery_PassesThroughWithoutPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(true))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
