package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/api/middleware"
	"github.com/Czechuuuu/szbi/internal/services"
)

type AuthHandler struct {
	authService   *services.AuthService
	secureCookies bool
	landingPath   string
}

func NewAuthHandler(authService *services.AuthService, secureCookies bool, landingPath string) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookies: secureCookies, landingPath: landingPath}
}

// setSecureCookie sets an auth cookie that scripts cannot read. The Secure
// flag is only set in production.
func (h *AuthHandler) setSecureCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secureCookies, true)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Next     string `json:"next"`
}

// LoginPage is where gates send anonymous callers. It returns the pending
// flash message and the page to continue to.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": middleware.PopFlash(c),
		"next":    safeNext(c.Query("next"), h.landingPath),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := h.authService.Login(req.Email, req.Password, actorOf(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountLocked):
			c.JSON(http.StatusForbidden, gin.H{"error": "Konto jest tymczasowo zablokowane."})
		case errors.Is(err, services.ErrAccountInactive):
			c.JSON(http.StatusForbidden, gin.H{"error": "Konto jest nieaktywne."})
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Nieprawidłowy e-mail lub hasło."})
		default:
			respondError(c, err)
		}
		return
	}

	h.setSecureCookie(c, middleware.AuthCookieName, token, 3600*24)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user, "next": safeNext(req.Next, h.landingPath)})
}

// safeNext only accepts local absolute paths.
func safeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.authService.Logout(actorOf(c))
	h.setSecureCookie(c, middleware.AuthCookieName, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Wylogowano."})
}

// Me returns the caller's account, employee record and effective permissions.
func (h *AuthHandler) Me(c *gin.Context) {
	actor := actorOf(c)
	c.JSON(http.StatusOK, gin.H{
		"user":        actor.User,
		"employee":    actor.Employee,
		"permissions": actor.Permissions.Names(),
	})
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(actorOf(c), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hasło zostało zmienione."})
}
