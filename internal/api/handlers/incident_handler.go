package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

type IncidentHandler struct {
	service *services.IncidentService
}

func NewIncidentHandler(service *services.IncidentService) *IncidentHandler {
	return &IncidentHandler{service: service}
}

func incidentFilter(c *gin.Context) services.IncidentFilter {
	return services.IncidentFilter{
		Status:   models.IncidentStatus(c.Query("status")),
		Severity: models.Criticality(c.Query("severity")),
		Category: models.IncidentCategory(c.Query("category")),
		Query:    c.Query("q"),
	}
}

func (h *IncidentHandler) Report(c *gin.Context) {
	var in services.IncidentReportInput
	if !bindJSON(c, &in) {
		return
	}
	inc, err := h.service.Report(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Incydent został zgłoszony.", inc)
}

// Mine lists incidents the caller reported or is assigned to.
func (h *IncidentHandler) Mine(c *gin.Context) {
	incidents, err := h.service.ListMine(actorOf(c), incidentFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}

func (h *IncidentHandler) All(c *gin.Context) {
	incidents, err := h.service.ListAll(incidentFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}

func (h *IncidentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	inc, err := h.service.Get(actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.service.Logs(id)
	if err != nil {
		respondError(c, err)
		return
	}
	next, _ := inc.Status.Next()
	c.JSON(http.StatusOK, gin.H{"incident": inc, "logs": logs, "next_status": next})
}

func (h *IncidentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.IncidentReportInput
	if !bindJSON(c, &in) {
		return
	}
	inc, err := h.service.Update(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Incydent został zaktualizowany.", inc)
}

func (h *IncidentHandler) Analysis(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.IncidentAnalysisInput
	if !bindJSON(c, &in) {
		return
	}
	inc, err := h.service.SaveAnalysis(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Zapisano analizę incydentu.", inc)
}

func (h *IncidentHandler) Response(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.IncidentResponseInput
	if !bindJSON(c, &in) {
		return
	}
	inc, err := h.service.SaveResponse(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Zapisano reakcję na incydent.", inc)
}

func (h *IncidentHandler) Action(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.IncidentActionInput
	if !bindJSON(c, &in) {
		return
	}
	inc, err := h.service.SaveAction(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Zapisano działania poincydentalne.", inc)
}

func (h *IncidentHandler) Close(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.IncidentCloseInput
	if !bindJSON(c, &in) {
		return
	}
	inc, err := h.service.Close(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Incydent został zamknięty.", inc)
}

// Advance moves the incident to the next status of the workflow.
func (h *IncidentHandler) Advance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	inc, err := h.service.Advance(actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Zmieniono status incydentu.", inc)
}

type assignRequest struct {
	AssignedToID *uint `json:"assigned_to_id"`
}

func (h *IncidentHandler) Assign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if !bindJSON(c, &req) {
		return
	}
	inc, err := h.service.Assign(actorOf(c), id, req.AssignedToID)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Zmieniono osobę przypisaną do incydentu.", inc)
}

type noteRequest struct {
	NoteType models.IncidentNoteType `json:"note_type"`
	Content  string                  `json:"content" binding:"required"`
}

func (h *IncidentHandler) AddNote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req noteRequest
	if !bindJSON(c, &req) {
		return
	}
	note, err := h.service.AddNote(actorOf(c), id, req.NoteType, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Dodano notatkę.", note)
}
