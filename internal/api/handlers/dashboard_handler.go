package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

// DashboardHandler is the landing page: counts for the modules the caller
// may see plus any pending flash message.
type DashboardHandler struct {
	assets    *services.AssetService
	incidents *services.IncidentService
	documents *services.DocumentService
	soa       *services.SoAService
}

func NewDashboardHandler(assets *services.AssetService, incidents *services.IncidentService, documents *services.DocumentService, soa *services.SoAService) *DashboardHandler {
	return &DashboardHandler{assets: assets, incidents: incidents, documents: documents, soa: soa}
}

func (h *DashboardHandler) Show(c *gin.Context) {
	actor := actorOf(c)
	counts := gin.H{}

	if actor.Can(models.AssetViewPermissions...) {
		n, err := h.assets.Counts()
		if err != nil {
			respondError(c, err)
			return
		}
		counts["assets"] = n
	}
	if actor.Can(models.IncidentViewAllPermissions...) {
		n, err := h.incidents.Counts()
		if err != nil {
			respondError(c, err)
			return
		}
		counts["incidents"] = n
	}
	if actor.Can(models.DocumentViewPermissions...) {
		n, err := h.documents.Counts()
		if err != nil {
			respondError(c, err)
			return
		}
		counts["documents"] = n
	}
	if actor.Can(models.SoAViewPermissions...) {
		n, err := h.soa.Counts()
		if err != nil {
			respondError(c, err)
			return
		}
		counts["soa"] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     middleware.PopFlash(c),
		"user":        actor.User,
		"employee":    actor.Employee,
		"permissions": actor.Permissions.Names(),
		"counts":      counts,
	})
}
