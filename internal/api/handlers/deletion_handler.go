package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/services"
)

// DeletionHandler exposes the delete check and the delete itself for every
// entity known to the deletion service.
type DeletionHandler struct {
	service *services.DeletionService
}

func NewDeletionHandler(service *services.DeletionService) *DeletionHandler {
	return &DeletionHandler{service: service}
}

// Check reports what deleting the record would block, cascade or clear.
func (h *DeletionHandler) Check(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		report, err := h.service.Inspect(entity, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"can_delete": report.CanDelete(), "report": report})
	}
}

// Delete removes the record unless protected references exist.
func (h *DeletionHandler) Delete(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := h.service.Delete(actorOf(c), entity, id); err != nil {
			var blocked *services.DeleteBlockedError
			if errors.As(err, &blocked) || errors.Is(err, services.ErrNotFound) {
				respondError(c, err)
				return
			}
			// Database failures are reported as a refused delete.
			middleware.GetRequestLogger(c).WithError(err).WithField("entity", entity).Warn("delete failed")
			c.JSON(http.StatusConflict, gin.H{"error": "Nie udało się usunąć obiektu."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Obiekt został usunięty."})
	}
}
