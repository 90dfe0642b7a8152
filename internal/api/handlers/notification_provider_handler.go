package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

// NotificationProviderHandler manages the external channels incident and
// document events are delivered to.
type NotificationProviderHandler struct {
	service *services.NotificationService
}

func NewNotificationProviderHandler(service *services.NotificationService) *NotificationProviderHandler {
	return &NotificationProviderHandler{service: service}
}

func (h *NotificationProviderHandler) List(c *gin.Context) {
	providers, err := h.service.ListProviders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Nie udało się pobrać kanałów powiadomień."})
		return
	}
	c.JSON(http.StatusOK, providers)
}

func (h *NotificationProviderHandler) Create(c *gin.Context) {
	var in services.ProviderInput
	if !bindJSON(c, &in) {
		return
	}
	provider, err := h.service.CreateProvider(in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, provider)
}

func (h *NotificationProviderHandler) Update(c *gin.Context) {
	var in services.ProviderInput
	if !bindJSON(c, &in) {
		return
	}
	provider, err := h.service.UpdateProvider(c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (h *NotificationProviderHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteProvider(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Kanał powiadomień został usunięty."})
}

// Test sends a test message through a stored provider. A failure is also
// stored as an in-app error notification.
func (h *NotificationProviderHandler) Test(c *gin.Context) {
	provider, err := h.service.GetProvider(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.service.TestProvider(provider.ID); err != nil {
		_, _ = h.service.Create(models.NotificationTypeError, "Test nieudany", fmt.Sprintf("Test kanału %s nie powiódł się: %v", provider.Name, err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wysłano powiadomienie testowe."})
}
