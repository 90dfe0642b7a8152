package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

// DictionaryHandler serves the ISO domain, objective and requirement catalog.
type DictionaryHandler struct {
	service *services.DictionaryService
}

func NewDictionaryHandler(service *services.DictionaryService) *DictionaryHandler {
	return &DictionaryHandler{service: service}
}

func (h *DictionaryHandler) Tree(c *gin.Context) {
	tree, err := h.service.Tree()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *DictionaryHandler) ListDomains(c *gin.Context) {
	domains, err := h.service.ListDomains()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domains)
}

func (h *DictionaryHandler) GetDomain(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	domain, err := h.service.GetDomain(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain)
}

func (h *DictionaryHandler) CreateDomain(c *gin.Context) {
	var in services.DomainInput
	if !bindJSON(c, &in) {
		return
	}
	domain, err := h.service.CreateDomain(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Domena została utworzona.", domain)
}

func (h *DictionaryHandler) UpdateDomain(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.DomainInput
	if !bindJSON(c, &in) {
		return
	}
	domain, err := h.service.UpdateDomain(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Domena została zaktualizowana.", domain)
}

func (h *DictionaryHandler) ListObjectives(c *gin.Context) {
	objectives, err := h.service.ListObjectives(queryID(c, "domain"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, objectives)
}

func (h *DictionaryHandler) GetObjective(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	objective, err := h.service.GetObjective(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, objective)
}

func (h *DictionaryHandler) CreateObjective(c *gin.Context) {
	var in services.ObjectiveInput
	if !bindJSON(c, &in) {
		return
	}
	objective, err := h.service.CreateObjective(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Cel został utworzony.", objective)
}

func (h *DictionaryHandler) UpdateObjective(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.ObjectiveInput
	if !bindJSON(c, &in) {
		return
	}
	objective, err := h.service.UpdateObjective(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Cel został zaktualizowany.", objective)
}

// ListRequirements returns one page of requirements plus catalog-wide stats.
func (h *DictionaryHandler) ListRequirements(c *gin.Context) {
	page, err := h.service.ListRequirements(services.RequirementFilter{
		Query:       c.Query("q"),
		IsApplied:   models.AppliedStatus(c.Query("is_applied")),
		ObjectiveID: queryID(c, "objective"),
		DomainID:    queryID(c, "domain"),
		Page:        queryPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *DictionaryHandler) GetRequirement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, err := h.service.GetRequirement(id)
	if err != nil {
		respondError(c, err)
		return
	}
	mappings, err := h.service.RequirementMappings(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requirement": req, "mappings": mappings})
}

func (h *DictionaryHandler) CreateRequirement(c *gin.Context) {
	var in services.RequirementInput
	if !bindJSON(c, &in) {
		return
	}
	req, err := h.service.CreateRequirement(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Wymaganie zostało utworzone.", req)
}

func (h *DictionaryHandler) UpdateRequirement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.RequirementInput
	if !bindJSON(c, &in) {
		return
	}
	req, err := h.service.UpdateRequirement(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Wymaganie zostało zaktualizowane.", req)
}

func (h *DictionaryHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Matrix returns requirement coverage by published documents.
func (h *DictionaryHandler) Matrix(c *gin.Context) {
	matrix, err := h.service.Matrix()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matrix)
}
