package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SoAHandler serves Statement of Applicability declarations and the
// dropdown lookups their forms use.
type SoAHandler struct {
	service    *services.SoAService
	dictionary *services.DictionaryService
}

func NewSoAHandler(service *services.SoAService, dictionary *services.DictionaryService) *SoAHandler {
	return &SoAHandler{service: service, dictionary: dictionary}
}

func (h *SoAHandler) List(c *gin.Context) {
	list, err := h.service.List(services.DeclarationFilter{
		Status: models.SoAStatus(c.Query("status")),
		Query:  c.Query("q"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns the declaration with entries grouped by ISO domain and the
// latest history entries.
func (h *SoAHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.service.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.service.Logs(id, 10)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"declaration": d,
		"domains":     services.EntriesByDomain(d),
		"logs":        logs,
	})
}

func (h *SoAHandler) Create(c *gin.Context) {
	var in services.DeclarationInput
	if !bindJSON(c, &in) {
		return
	}
	d, err := h.service.Create(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Deklaracja zgodności została utworzona.", d)
}

func (h *SoAHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.DeclarationInput
	if !bindJSON(c, &in) {
		return
	}
	d, err := h.service.Update(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Deklaracja zgodności została zaktualizowana.", d)
}

type statusRequest struct {
	NewStatus models.SoAStatus `json:"new_status" binding:"required"`
}

// SetStatus changes the declaration status; any status may follow any other.
func (h *SoAHandler) SetStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.service.SetStatus(actorOf(c), id, req.NewStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Status deklaracji został zmieniony.", d)
}

func (h *SoAHandler) AddEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.EntryInput
	if !bindJSON(c, &in) {
		return
	}
	e, err := h.service.AddEntry(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Dodano pozycję deklaracji.", e)
}

func (h *SoAHandler) UpdateEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entryID, ok := parseID(c, "entry_id")
	if !ok {
		return
	}
	var in services.EntryInput
	if !bindJSON(c, &in) {
		return
	}
	e, err := h.service.UpdateEntry(actorOf(c), id, entryID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Zaktualizowano pozycję deklaracji.", e)
}

func (h *SoAHandler) RemoveEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entryID, ok := parseID(c, "entry_id")
	if !ok {
		return
	}
	if err := h.service.RemoveEntry(actorOf(c), id, entryID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usunięto pozycję deklaracji."})
}

func (h *SoAHandler) Export(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.ExportXLSX(actorOf(c), id, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="deklaracja_%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Objectives answers GET /soa/api/objectives/:domain_id with [{id, code, name}].
func (h *SoAHandler) Objectives(c *gin.Context) {
	id, ok := parseID(c, "domain_id")
	if !ok {
		return
	}
	options, err := h.dictionary.ObjectiveOptions(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

// Requirements answers GET /soa/api/requirements/:objective_id with
// [{id, code, name}] where code is the ISO id.
func (h *SoAHandler) Requirements(c *gin.Context) {
	id, ok := parseID(c, "objective_id")
	if !ok {
		return
	}
	options, err := h.dictionary.RequirementOptions(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}
