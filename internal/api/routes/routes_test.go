package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/api/handlers"
	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

type testApp struct {
	router      *gin.Engine
	db          *gorm.DB
	cfg         config.Config
	directory   *services.DirectoryService
	permissions *services.PermissionService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := handlers.OpenTestDB(t)
	cfg := config.Config{
		JWTSecret:        "test-secret",
		LandingPath:      "/api/v1/dashboard",
		LoginPath:        "/api/v1/auth/login",
		ActivityPageSize: 20,
	}
	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router := gin.New()
	require.NoError(t, Register(router, db, cfg, registry))

	activity := services.NewActivityService(db, cfg.ActivityPageSize)
	return &testApp{
		router:      router,
		db:          db,
		cfg:         cfg,
		directory:   services.NewDirectoryService(db, activity),
		permissions: services.NewPermissionService(db, activity),
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (a *testApp) superuser(t *testing.T) string {
	t.Helper()
	auth := services.NewAuthService(a.db, a.cfg, services.NewActivityService(a.db, 20))
	_, err := auth.CreateSuperuser("root@example.com", "password123", "Administrator")
	require.NoError(t, err)
	return a.login(t, "root@example.com", "password123")
}

// employee creates an employee holding perms through a directly assigned group.
func (a *testApp) employee(t *testing.T, email string, perms ...string) (*models.Employee, string) {
	t.Helper()
	emp, err := a.directory.CreateEmployee(services.SystemActor(), services.EmployeeInput{
		FirstName: "Anna", LastName: "Nowak", Email: email, Password: "password123",
	})
	require.NoError(t, err)
	if len(perms) > 0 {
		_, err := a.permissions.SeedSystemPermissions(services.SystemActor())
		require.NoError(t, err)
		var ids []uint
		require.NoError(t, a.db.Model(&models.Permission{}).Where("name IN ?", perms).Pluck("id", &ids).Error)
		require.Len(t, ids, len(perms))
		group, err := a.permissions.CreateGroup(services.SystemActor(), services.GroupInput{Name: "Grupa " + email, PermissionIDs: ids})
		require.NoError(t, err)
		_, err = a.permissions.AssignToEmployee(services.SystemActor(), emp.ID, group.ID)
		require.NoError(t, err)
	}
	return emp, a.login(t, email, "password123")
}

func TestRegister_HealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ok", health["database"])

	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGate_AnonymousIsRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/assets?status=active", "", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/api/v1/auth/login?next=%2Fapi%2Fv1%2Fassets%3Fstatus%3Dactive", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.FlashCookieName+"=")

	w = app.do(t, http.MethodGet, "/api/v1/auth/login?next=//evil.example.com", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var page map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "/api/v1/dashboard", page["next"])
}

func TestGate_SuperuserReachesEveryGatedRoute(t *testing.T) {
	app := newTestApp(t)
	token := app.superuser(t)

	paths := []string{
		"/api/v1/auth/me",
		"/api/v1/dashboard",
		"/api/v1/organization",
		"/api/v1/departments",
		"/api/v1/positions",
		"/api/v1/employees",
		"/api/v1/permissions",
		"/api/v1/permission-groups",
		"/api/v1/assets",
		"/api/v1/asset-categories",
		"/api/v1/incidents",
		"/api/v1/incidents/mine",
		"/api/v1/documents",
		"/api/v1/documents/shared-with-me",
		"/api/v1/dictionary/tree",
		"/api/v1/dictionary/matrix",
		"/api/v1/dictionary/requirements",
		"/api/v1/soa",
		"/api/v1/soa/api/objectives/1",
		"/api/v1/soa/api/requirements/1",
		"/api/v1/activity-log",
		"/api/v1/notifications",
		"/api/v1/notifications/providers",
	}
	for _, path := range paths {
		t.Run(strings.TrimPrefix(path, "/api/v1/"), func(t *testing.T) {
			w := app.do(t, http.MethodGet, path, token, nil)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestGate_DeniedCallerGetsFlashRedirect(t *testing.T) {
	app := newTestApp(t)
	_, token := app.employee(t, "viewer@example.com", models.PermAssetsView)

	w := app.do(t, http.MethodGet, "/api/v1/assets", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/assets", token, gin.H{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/api/v1/dashboard", w.Header().Get("Location"))

	var flash *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.FlashCookieName {
			flash = c
		}
	}
	require.NotNil(t, flash)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.AddCookie(flash)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash struct {
		Message     string                 `json:"message"`
		Permissions []string               `json:"permissions"`
		Counts      map[string]interface{} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, middleware.DeniedMessage, dash.Message)
	assert.Equal(t, []string{models.PermAssetsView}, dash.Permissions)
	assert.Contains(t, dash.Counts, "assets")
	assert.NotContains(t, dash.Counts, "documents")

	w = app.do(t, http.MethodGet, "/api/v1/departments", token, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code, "directory is staff only")

	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, w.Body.String(), `szbi_permission_denials_total{mode="redirect"}`)
}

func TestSoALookups_RaiseMode(t *testing.T) {
	app := newTestApp(t)
	dict := services.NewDictionaryService(app.db, services.NewActivityService(app.db, 20))
	dom, err := dict.CreateDomain(services.SystemActor(), services.DomainInput{Code: "A.5", Name: "Polityki"})
	require.NoError(t, err)
	obj, err := dict.CreateObjective(services.SystemActor(), services.ObjectiveInput{DomainID: dom.ID, Code: "A.5.1", Name: "Kierunki"})
	require.NoError(t, err)
	req, err := dict.CreateRequirement(services.SystemActor(), services.RequirementInput{ObjectiveID: obj.ID, ISOID: "A.5.1.1", Name: "Polityki bezpieczeństwa"})
	require.NoError(t, err)

	w := app.do(t, http.MethodGet, "/api/v1/soa/api/objectives/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, plain := app.employee(t, "plain@example.com")
	w = app.do(t, http.MethodGet, "/api/v1/soa/api/objectives/1", plain, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"`+middleware.DeniedMessage+`"}`, w.Body.String())

	_, token := app.employee(t, "auditor@example.com", models.PermComplianceApprover)
	w = app.do(t, http.MethodGet, "/api/v1/soa/api/objectives/"+itoa(dom.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var objectives []services.Option
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &objectives))
	assert.Equal(t, []services.Option{{ID: obj.ID, Code: "A.5.1", Name: "Kierunki"}}, objectives)

	w = app.do(t, http.MethodGet, "/api/v1/soa/api/requirements/"+itoa(obj.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reqs []services.Option
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reqs))
	assert.Equal(t, []services.Option{{ID: req.ID, Code: "A.5.1.1", Name: "Polityki bezpieczeństwa"}}, reqs)

	w = app.do(t, http.MethodGet, "/api/v1/soa/api/requirements/999", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDeleteEmployee_BlockedByOwnedDocument(t *testing.T) {
	app := newTestApp(t)
	token := app.superuser(t)
	owner, _ := app.employee(t, "owner@example.com")

	w := app.do(t, http.MethodPost, "/api/v1/documents", token, gin.H{"designation": "POL-01", "title": "Polityka", "owner_id": owner.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/v1/employees/"+itoa(owner.ID)+"/delete-check", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check struct {
		CanDelete bool `json:"can_delete"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.False(t, check.CanDelete)

	w = app.do(t, http.MethodDelete, "/api/v1/employees/"+itoa(owner.ID), token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var resp struct {
		Blocking []services.RelationCount `json:"blocking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Blocking)
	assert.EqualValues(t, 1, resp.Blocking[0].Count)

	var n int64
	require.NoError(t, app.db.Model(&models.Employee{}).Where("id = ?", owner.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestDocumentWorkflow_OverHTTP(t *testing.T) {
	app := newTestApp(t)
	token := app.superuser(t)
	owner, _ := app.employee(t, "owner@example.com")

	w := app.do(t, http.MethodPost, "/api/v1/documents", token, gin.H{"designation": "PRO-01", "title": "Procedura", "owner_id": owner.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	path := "/api/v1/documents/" + itoa(created.Data.ID)

	w = app.do(t, http.MethodPost, path+"/transition", token, gin.H{"new_status": "published"})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, status := range []string{"review", "approval", "published"} {
		w = app.do(t, http.MethodPost, path+"/transition", token, gin.H{"new_status": status})
		require.Equal(t, http.StatusOK, w.Code, status)
	}

	w = app.do(t, http.MethodGet, path+"/transitions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["archived"]`, w.Body.String())
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
