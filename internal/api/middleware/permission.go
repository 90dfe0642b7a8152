package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/services"
)

const (
	FlashCookieName = "flash"

	DeniedMessage = "Nie masz uprawnień do wykonania tej operacji."
	LoginMessage  = "Zaloguj się, aby kontynuować."
)

// Mode selects how a gate answers a refused request.
type Mode int

const (
	// Redirect sends the caller to the landing page with a flash message.
	Redirect Mode = iota
	// Raise answers with an explicit 401/403 error payload.
	Raise
)

func (m Mode) String() string {
	if m == Raise {
		return "raise"
	}
	return "redirect"
}

// Requirement describes what a caller must hold to pass a gate. An empty
// requirement only demands a logged-in caller.
type Requirement struct {
	Permissions []string
	All         bool
	Staff       bool
	Category    models.PermissionCategory
}

// Allows evaluates the requirement against the caller. Superusers pass every
// requirement; staff accounts pass requirements that accept staff.
func (r Requirement) Allows(a services.Actor) bool {
	if a.IsSuperuser() {
		return true
	}
	if r.Staff && a.IsAdmin() {
		return true
	}
	if r.Category != "" && a.Permissions.HasCategory(r.Category) {
		return true
	}
	if len(r.Permissions) == 0 {
		return !r.Staff && r.Category == ""
	}
	if r.All {
		return a.Permissions.HasAll(r.Permissions...)
	}
	return a.Permissions.HasAny(r.Permissions...)
}

// Gate builds per-route permission checks.
type Gate struct {
	LandingPath string
	LoginPath   string
}

func NewGate(landingPath, loginPath string) *Gate {
	return &Gate{LandingPath: landingPath, LoginPath: loginPath}
}

// Require runs the check for r in the given mode.
func (g *Gate) Require(mode Mode, r Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			g.login(c, mode)
			return
		}
		if !r.Allows(actor) {
			g.deny(c, mode, actor, r)
			return
		}
		c.Next()
	}
}

// Any passes callers holding at least one of perms.
func (g *Gate) Any(perms ...string) gin.HandlerFunc {
	return g.Require(Redirect, Requirement{Permissions: perms})
}

// All passes callers holding every one of perms.
func (g *Gate) All(perms ...string) gin.HandlerFunc {
	return g.Require(Redirect, Requirement{Permissions: perms, All: true})
}

// AnyOrRaise is Any for programmatic callers.
func (g *Gate) AnyOrRaise(perms ...string) gin.HandlerFunc {
	return g.Require(Raise, Requirement{Permissions: perms})
}

// Staff passes staff and superuser accounts.
func (g *Gate) Staff() gin.HandlerFunc {
	return g.Require(Redirect, Requirement{Staff: true})
}

// StaffOr passes staff accounts and holders of any of perms.
func (g *Gate) StaffOr(perms ...string) gin.HandlerFunc {
	return g.Require(Redirect, Requirement{Staff: true, Permissions: perms})
}

// Dictionary passes staff and holders of any dictionary permission.
func (g *Gate) Dictionary() gin.HandlerFunc {
	return g.Require(Redirect, Requirement{Staff: true, Category: models.CategoryDictionary})
}

// LoginRequired passes any authenticated caller.
func (g *Gate) LoginRequired() gin.HandlerFunc {
	return g.Require(Redirect, Requirement{})
}

func (g *Gate) login(c *gin.Context, mode Mode) {
	if mode == Raise {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return
	}
	SetFlash(c, LoginMessage)
	target := g.LoginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}

func (g *Gate) deny(c *gin.Context, mode Mode, actor services.Actor, r Requirement) {
	metrics.IncPermissionDenied(mode.String())
	GetRequestLogger(c).WithFields(logrus.Fields{
		"user_id":     actor.User.ID,
		"path":        SanitizePath(c.Request.URL.Path),
		"permissions": r.Permissions,
		"mode":        mode.String(),
	}).Info("permission denied")

	if mode == Raise {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": DeniedMessage})
		return
	}
	SetFlash(c, DeniedMessage)
	c.Redirect(http.StatusSeeOther, g.LandingPath)
	c.Abort()
}

// SetFlash stores a one-shot message for the next page the caller visits.
func SetFlash(c *gin.Context, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookieName, message, 60, "/", "", false, true)
}

// PopFlash returns and clears the pending flash message.
func PopFlash(c *gin.Context) string {
	msg, err := c.Cookie(FlashCookieName)
	if err != nil || msg == "" {
		return ""
	}
	c.SetCookie(FlashCookieName, "", -1, "/", "", false, true)
	return msg
}
