package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/services"
)

const (
	msgInvalidInput  = "Formularz zawiera błędy."
	msgNotFound      = "Nie znaleziono obiektu."
	msgDuplicate     = "Taki rekord już istnieje."
	msgTransition    = "Niedozwolona zmiana statusu."
	msgServerError   = "Wystąpił błąd podczas zapisu. Spróbuj ponownie."
	msgDeleteBlocked = "Nie można usunąć obiektu, ponieważ jest powiązany z innymi rekordami."
)

var validationMessages = map[string]string{
	"required": "To pole jest wymagane.",
	"max":      "Wartość jest za długa.",
	"min":      "Wartość jest za krótka.",
	"email":    "Podaj poprawny adres e-mail.",
	"url":      "Podaj poprawny adres URL.",
	"gte":      "Wartość nie może być ujemna.",
}

// Field errors are reported under the JSON names clients submit.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// actorOf returns the caller attached by the auth middleware.
func actorOf(c *gin.Context) services.Actor {
	actor, _ := middleware.CurrentActor(c)
	return actor
}

// parseID reads a numeric path parameter and answers 400 when it is malformed.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryID reads an optional numeric query parameter.
func queryID(c *gin.Context, name string) *uint {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	v := uint(id)
	return &v
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

func queryDate(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

// bindJSON decodes the body into dst and answers 400 with field messages
// when binding fails.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidInput, "fields": fieldMessages(verrs)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func fieldMessages(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		msg, ok := validationMessages[e.Tag()]
		if !ok {
			msg = "Niepoprawna wartość."
		}
		out[e.Field()] = msg
	}
	return out
}

// respondError maps service errors onto HTTP answers.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	var blocked *services.DeleteBlockedError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidInput, "fields": verr.Fields})
	case errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{"error": msgDeleteBlocked, "blocking": blocked.Blocking})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case errors.Is(err, services.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": msgDuplicate})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": msgTransition})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": middleware.DeniedMessage})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
	}
}

// created answers 201 with the record and a flash message.
func created(c *gin.Context, message string, record interface{}) {
	c.JSON(http.StatusCreated, gin.H{"message": message, "data": record})
}

// saved answers 200 with the record and a flash message.
func saved(c *gin.Context, message string, record interface{}) {
	c.JSON(http.StatusOK, gin.H{"message": message, "data": record})
}
