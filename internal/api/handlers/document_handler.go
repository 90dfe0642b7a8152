package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

type DocumentHandler struct {
	service *services.DocumentService
}

func NewDocumentHandler(service *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.service.List(services.DocumentFilter{
		Status:  models.DocumentStatus(c.Query("status")),
		Type:    models.DocumentType(c.Query("type")),
		OwnerID: queryID(c, "owner"),
		Query:   c.Query("q"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Get returns the document, its history and the statuses it may move to.
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.service.Logs(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document":            doc,
		"logs":                logs,
		"allowed_transitions": doc.Status.AllowedTransitions(),
	})
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var in services.DocumentInput
	if !bindJSON(c, &in) {
		return
	}
	doc, err := h.service.Create(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Dokument został utworzony.", doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.DocumentInput
	if !bindJSON(c, &in) {
		return
	}
	doc, err := h.service.Update(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Dokument został zaktualizowany.", doc)
}

type transitionRequest struct {
	NewStatus models.DocumentStatus `json:"new_status" binding:"required"`
	Comment   string                `json:"comment"`
}

// Transition changes the document status. Publishing additionally requires
// an approving permission.
func (h *DocumentHandler) Transition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := actorOf(c)
	if req.NewStatus == models.DocumentPublished && !actor.Can(models.DocumentApprovePermissions...) {
		c.JSON(http.StatusForbidden, gin.H{"error": middleware.DeniedMessage})
		return
	}
	doc, err := h.service.Transition(actor, id, req.NewStatus, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Status dokumentu został zmieniony.", doc)
}

func (h *DocumentHandler) AddVersion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.VersionInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.service.AddVersion(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Dodano nową wersję dokumentu.", v)
}

func (h *DocumentHandler) SetCurrentVersion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	versionID, ok := parseID(c, "version_id")
	if !ok {
		return
	}
	v, err := h.service.SetCurrentVersion(actorOf(c), id, versionID)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Ustawiono bieżącą wersję dokumentu.", v)
}

type accessRequest struct {
	GroupID     uint               `json:"group_id" binding:"required"`
	AccessLevel models.AccessLevel `json:"access_level"`
}

func (h *DocumentHandler) GrantAccess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req accessRequest
	if !bindJSON(c, &req) {
		return
	}
	access, err := h.service.GrantAccess(actorOf(c), id, req.GroupID, req.AccessLevel)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Nadano dostęp do dokumentu.", access)
}

func (h *DocumentHandler) RevokeAccess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	groupID, ok := parseID(c, "group_id")
	if !ok {
		return
	}
	if err := h.service.RevokeAccess(actorOf(c), id, groupID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Odebrano dostęp do dokumentu."})
}

// SharedWithMe lists documents shared with any group the caller belongs to.
func (h *DocumentHandler) SharedWithMe(c *gin.Context) {
	shared, err := h.service.SharedWithMe(actorOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shared)
}

type acknowledgeRequest struct {
	Notes string `json:"notes"`
}

func (h *DocumentHandler) Acknowledge(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req acknowledgeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	ack, err := h.service.Acknowledge(actorOf(c), id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Potwierdzono zapoznanie się z dokumentem.", ack)
}

func (h *DocumentHandler) LinkISO(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.MappingInput
	if !bindJSON(c, &in) {
		return
	}
	mapping, err := h.service.LinkISO(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Powiązano dokument z wymaganiem ISO.", mapping)
}

func (h *DocumentHandler) UnlinkISO(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	mappingID, ok := parseID(c, "mapping_id")
	if !ok {
		return
	}
	if err := h.service.UnlinkISO(actorOf(c), id, mappingID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usunięto powiązanie z wymaganiem ISO."})
}

// Transitions returns the statuses the document may move to next.
func (h *DocumentHandler) Transitions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	allowed, err := h.service.AllowedTransitions(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allowed)
}
