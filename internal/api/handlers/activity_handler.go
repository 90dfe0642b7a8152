package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

type ActivityHandler struct {
	service *services.ActivityService
}

func NewActivityHandler(service *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func activityFilter(c *gin.Context) services.ActivityFilter {
	return services.ActivityFilter{
		Category: models.ActivityCategory(c.Query("category")),
		Action:   models.ActivityAction(c.Query("action")),
		UserID:   queryID(c, "user_id"),
		DateFrom: queryDate(c, "date_from"),
		DateTo:   queryDate(c, "date_to"),
		Query:    c.Query("q"),
		Page:     queryPage(c),
	}
}

// List returns one page of the activity log with the filter choices.
func (h *ActivityHandler) List(c *gin.Context) {
	page, err := h.service.List(activityFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      page.Items,
		"page":       page.Page,
		"pages":      page.Pages,
		"page_size":  page.PageSize,
		"total":      page.Total,
		"categories": models.ActivityCategoryLabels,
		"actions":    models.ActivityActionLabels,
	})
}

func (h *ActivityHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ForObject returns the history of one record.
func (h *ActivityHandler) ForObject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	category := models.ActivityCategory(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}
	items, err := h.service.ForObject(category, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Export streams the filtered log as a spreadsheet.
func (h *ActivityHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.ExportXLSX(actorOf(c), activityFilter(c), &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("dziennik_zdarzen_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
