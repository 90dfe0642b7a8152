package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Czechuuuu/szbi/internal/api/handlers"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

func setupDirectoryRouter(t *testing.T) (*gin.Engine, *services.PermissionService) {
	t.Helper()
	db, activity := setupDB(t)
	actor := superActor(t, db, activity)
	perms := services.NewPermissionService(db, activity)
	h := handlers.NewDirectoryHandler(services.NewDirectoryService(db, activity), perms)

	r := routerAs(actor)
	r.GET("/organization", h.Organization)
	r.PUT("/organization", h.UpdateOrganization)
	r.GET("/departments", h.ListDepartments)
	r.POST("/departments", h.CreateDepartment)
	r.GET("/departments/:id", h.GetDepartment)
	r.POST("/departments/:id/groups", h.AssignDepartmentGroup())
	r.DELETE("/departments/:id/groups/:group_id", h.UnassignDepartmentGroup())
	r.POST("/positions", h.CreatePosition)
	r.POST("/positions/:id/groups", h.AssignPositionGroup())
	r.GET("/employees", h.ListEmployees)
	r.POST("/employees", h.CreateEmployee)
	r.GET("/employees/:id", h.GetEmployee)
	r.PUT("/employees/:id/positions", h.SetPositions)
	r.POST("/employees/:id/groups", h.AssignEmployeeGroup())
	return r, perms
}

type created struct {
	Message string `json:"message"`
	Data    struct {
		ID uint `json:"id"`
	} `json:"data"`
}

func groupWith(t *testing.T, perms *services.PermissionService, name string, permNames ...string) uint {
	t.Helper()
	var ids []uint
	for _, n := range permNames {
		p, err := perms.CreatePermission(services.SystemActor(), services.PermissionInput{Name: n, Category: models.CategoryAssets})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	g, err := perms.CreateGroup(services.SystemActor(), services.GroupInput{Name: name, PermissionIDs: ids})
	require.NoError(t, err)
	return g.ID
}

func TestDirectoryHandler_ValidationUsesJSONFieldNames(t *testing.T) {
	r, _ := setupDirectoryRouter(t)

	w := send(r, http.MethodPost, "/employees", gin.H{"first_name": "Jan", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "To pole jest wymagane.", resp.Fields["last_name"])
	assert.Equal(t, "Podaj poprawny adres e-mail.", resp.Fields["email"])
	assert.NotContains(t, resp.Fields, "LastName")

	w = send(r, http.MethodGet, "/employees/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, "/employees/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectoryHandler_EmployeeWithGroupsFromEveryPath(t *testing.T) {
	r, perms := setupDirectoryRouter(t)

	w := send(r, http.MethodPost, "/departments", gin.H{"name": "IT"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dept created
	decode(t, w, &dept)

	w = send(r, http.MethodPost, "/positions", gin.H{"name": "Administrator", "department_id": dept.Data.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pos created
	decode(t, w, &pos)

	w = send(r, http.MethodPost, "/employees", gin.H{
		"first_name": "Jan", "last_name": "Kowalski", "email": "jan@example.com",
		"password": "password123", "department_id": dept.Data.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var emp created
	decode(t, w, &emp)

	w = send(r, http.MethodPut, fmt.Sprintf("/employees/%d/positions", emp.Data.ID), gin.H{"position_ids": []uint{pos.Data.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	deptGroup := groupWith(t, perms, "Dział", "Dział: odczyt")
	posGroup := groupWith(t, perms, "Stanowisko", "Stanowisko: odczyt")
	empGroup := groupWith(t, perms, "Osobiste", "Osobiste: odczyt")

	for path, group := range map[string]uint{
		fmt.Sprintf("/departments/%d/groups", dept.Data.ID): deptGroup,
		fmt.Sprintf("/positions/%d/groups", pos.Data.ID):    posGroup,
		fmt.Sprintf("/employees/%d/groups", emp.Data.ID):    empGroup,
	} {
		w = send(r, http.MethodPost, path, gin.H{"group_id": group})
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	w = send(r, http.MethodPost, fmt.Sprintf("/employees/%d/groups", emp.Data.ID), gin.H{"group_id": empGroup})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = send(r, http.MethodPost, fmt.Sprintf("/employees/%d/groups", emp.Data.ID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, fmt.Sprintf("/employees/%d", emp.Data.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		PermissionGroups     []models.EmployeePermissionGroup `json:"permission_groups"`
		EffectivePermissions []string                         `json:"effective_permissions"`
	}
	decode(t, w, &detail)
	assert.Len(t, detail.PermissionGroups, 1)
	assert.ElementsMatch(t, []string{"Dział: odczyt", "Stanowisko: odczyt", "Osobiste: odczyt"}, detail.EffectivePermissions)

	w = send(r, http.MethodDelete, fmt.Sprintf("/departments/%d/groups/%d", dept.Data.ID, deptGroup), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, fmt.Sprintf("/employees/%d", emp.Data.ID), nil)
	decode(t, w, &detail)
	assert.ElementsMatch(t, []string{"Stanowisko: odczyt", "Osobiste: odczyt"}, detail.EffectivePermissions)

	w = send(r, http.MethodGet, fmt.Sprintf("/employees?department_id=%d&q=kowal", dept.Data.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Employee
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func TestDirectoryHandler_Organization(t *testing.T) {
	r, _ := setupDirectoryRouter(t)

	w := send(r, http.MethodPut, "/organization", gin.H{"name": "ACME", "website": "not a url"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPut, "/organization", gin.H{"name": "ACME", "short_name": "AC"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = send(r, http.MethodGet, "/organization", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ACME"`)
}
