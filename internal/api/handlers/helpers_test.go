package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/api/handlers"
	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/services"
)

var testConfig = config.Config{JWTSecret: "test-secret", LandingPath: "/dashboard", LoginPath: "/login", ActivityPageSize: 20}

func setupDB(t *testing.T) (*gorm.DB, *services.ActivityService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := handlers.OpenTestDB(t)
	return db, services.NewActivityService(db, 20)
}

// routerAs returns an engine whose requests all run as actor.
func routerAs(actor services.Actor) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actor.User != nil {
			middleware.SetActor(c, actor)
		}
		c.Next()
	})
	return r
}

func superActor(t *testing.T, db *gorm.DB, activity *services.ActivityService) services.Actor {
	t.Helper()
	user, err := services.NewAuthService(db, testConfig, activity).CreateSuperuser("root@example.com", "password123", "Root")
	require.NoError(t, err)
	actor, err := services.NewPermissionService(db, activity).ActorFor(user)
	require.NoError(t, err)
	return actor
}

func send(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func jsonBody(v interface{}) *bytes.Buffer {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(v)
	return &buf
}
