package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

type AssetHandler struct {
	service *services.AssetService
}

func NewAssetHandler(service *services.AssetService) *AssetHandler {
	return &AssetHandler{service: service}
}

func (h *AssetHandler) List(c *gin.Context) {
	assets, err := h.service.List(services.AssetFilter{
		CategoryID:  queryID(c, "category"),
		Status:      models.AssetStatus(c.Query("status")),
		Criticality: models.Criticality(c.Query("criticality")),
		Query:       c.Query("q"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

// Get returns the asset with its change history.
func (h *AssetHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	asset, err := h.service.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.service.Logs(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset, "logs": logs})
}

func (h *AssetHandler) Create(c *gin.Context) {
	var in services.AssetInput
	if !bindJSON(c, &in) {
		return
	}
	asset, err := h.service.Create(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Aktywo zostało dodane.", asset)
}

func (h *AssetHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.AssetInput
	if !bindJSON(c, &in) {
		return
	}
	asset, err := h.service.Update(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Aktywo zostało zaktualizowane.", asset)
}

func (h *AssetHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *AssetHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	category, err := h.service.GetCategory(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *AssetHandler) CreateCategory(c *gin.Context) {
	var in services.AssetCategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.service.CreateCategory(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Kategoria została utworzona.", category)
}

func (h *AssetHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.AssetCategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.service.UpdateCategory(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Kategoria została zaktualizowana.", category)
}
