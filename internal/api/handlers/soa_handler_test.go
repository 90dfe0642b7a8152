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

func TestSoAHandler_DeclarationFlow(t *testing.T) {
	db, activity := setupDB(t)
	actor := superActor(t, db, activity)
	owner, err := services.NewDirectoryService(db, activity).CreateEmployee(actor, services.EmployeeInput{
		FirstName: "Anna", LastName: "Nowak", Email: "anna@example.com", Password: "password123",
	})
	require.NoError(t, err)

	dict := services.NewDictionaryService(db, activity)
	dom, err := dict.CreateDomain(actor, services.DomainInput{Code: "A.5", Name: "Polityki"})
	require.NoError(t, err)
	obj, err := dict.CreateObjective(actor, services.ObjectiveInput{DomainID: dom.ID, Code: "A.5.1", Name: "Kierunki"})
	require.NoError(t, err)
	req, err := dict.CreateRequirement(actor, services.RequirementInput{ObjectiveID: obj.ID, ISOID: "A.5.1.1", Name: "Polityki"})
	require.NoError(t, err)

	h := handlers.NewSoAHandler(services.NewSoAService(db, activity), dict)
	r := routerAs(actor)
	r.POST("/soa", h.Create)
	r.GET("/soa/:id", h.Get)
	r.POST("/soa/:id/status", h.SetStatus)
	r.POST("/soa/:id/entries", h.AddEntry)
	r.GET("/soa/:id/export", h.Export)

	w := send(r, http.MethodPost, "/soa", gin.H{"designation": "SOA-1", "name": "Deklaracja", "owner_id": owner.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp created
	decode(t, w, &resp)
	path := fmt.Sprintf("/soa/%d", resp.Data.ID)

	w = send(r, http.MethodPost, path+"/entries", gin.H{"requirement_id": req.ID, "justification": "Wymóg prawny"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = send(r, http.MethodPost, path+"/entries", gin.H{"requirement_id": req.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, status := range []models.SoAStatus{models.SoAArchived, models.SoADraft} {
		w = send(r, http.MethodPost, path+"/status", gin.H{"new_status": status})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = send(r, http.MethodPost, path+"/status", gin.H{"new_status": "published"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Domains []services.DomainEntries `json:"domains"`
		Logs    []models.SoALog          `json:"logs"`
	}
	decode(t, w, &detail)
	require.Len(t, detail.Domains, 1)
	assert.NotEmpty(t, detail.Logs)

	w = send(r, http.MethodGet, path+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("deklaracja_%d.xlsx", resp.Data.ID))

	w = send(r, http.MethodGet, "/soa/999/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
