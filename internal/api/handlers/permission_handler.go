package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

type PermissionHandler struct {
	service *services.PermissionService
}

func NewPermissionHandler(service *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{service: service}
}

// List returns permissions grouped by category, or a single category when
// ?category= is given.
func (h *PermissionHandler) List(c *gin.Context) {
	if category := models.PermissionCategory(c.Query("category")); category != "" {
		perms, err := h.service.ListPermissions(category)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, perms)
		return
	}
	grouped, err := h.service.PermissionsByCategory()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": models.PermissionCategoryLabels, "permissions": grouped})
}

func (h *PermissionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.GetPermission(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PermissionHandler) Create(c *gin.Context) {
	var in services.PermissionInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.service.CreatePermission(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Uprawnienie zostało utworzone.", p)
}

func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.PermissionInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.service.UpdatePermission(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Uprawnienie zostało zaktualizowane.", p)
}

// Seed installs the predefined system permissions.
func (h *PermissionHandler) Seed(c *gin.Context) {
	n, err := h.service.SeedSystemPermissions(actorOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Zainstalowano uprawnienia systemowe.", "created": n})
}

func (h *PermissionHandler) ListGroups(c *gin.Context) {
	groups, err := h.service.ListGroups()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *PermissionHandler) GetGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	g, err := h.service.GetGroup(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *PermissionHandler) CreateGroup(c *gin.Context) {
	var in services.GroupInput
	if !bindJSON(c, &in) {
		return
	}
	g, err := h.service.CreateGroup(actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "Grupa uprawnień została utworzona.", g)
}

func (h *PermissionHandler) UpdateGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.GroupInput
	if !bindJSON(c, &in) {
		return
	}
	g, err := h.service.UpdateGroup(actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	saved(c, "Grupa uprawnień została zaktualizowana.", g)
}
