package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Czechuuuu/szbi/internal/services"
	"github.com/Czechuuuu/szbi/internal/util"
)

const (
	AuthCookieName = "auth_token"

	userIDKey = "userID"
	userKey   = "user"
	actorKey  = "actor"
)

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(authService *services.AuthService, permService *services.PermissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		if err := attachActor(c, authService, permService, token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through. Gates decide what anonymous callers may do.
func OptionalAuth(authService *services.AuthService, permService *services.PermissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if err := attachActor(c, authService, permService, token); err != nil {
				GetRequestLogger(c).WithError(err).Debug("ignoring invalid token")
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie
	}
	return ""
}

func attachActor(c *gin.Context, authService *services.AuthService, permService *services.PermissionService, token string) error {
	claims, err := authService.ValidateToken(token)
	if err != nil {
		return err
	}
	user, err := authService.GetUserByID(claims.UserID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return services.ErrAccountInactive
	}
	actor, err := permService.ActorFor(user)
	if err != nil {
		return err
	}
	actor.IPAddress = util.ClientIP(c.Request)
	actor.UserAgent = c.Request.UserAgent()

	c.Set(userIDKey, user.ID)
	c.Set(userKey, user)
	c.Set(actorKey, actor)
	return nil
}

// SetActor stores the caller for downstream handlers.
func SetActor(c *gin.Context, actor services.Actor) {
	if actor.User != nil {
		c.Set(userIDKey, actor.User.ID)
		c.Set(userKey, actor.User)
	}
	c.Set(actorKey, actor)
}

// CurrentActor returns the authenticated caller. Anonymous requests get an
// Actor carrying only the request metadata and false.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(services.Actor); ok && a.User != nil {
			return a, true
		}
	}
	return services.Actor{IPAddress: util.ClientIP(c.Request), UserAgent: c.Request.UserAgent()}, false
}
