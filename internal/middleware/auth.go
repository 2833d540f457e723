package middleware

import (
	"net/http"
	"os"
	"strings"

	"fieldtasks/internal/authz"
	"fieldtasks/internal/model"
	"fieldtasks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const identityKey = "identity"

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// identityDB holds the database reference used to resolve callers — set via InitAuth
var identityDB *gorm.DB

// InitAuth sets the DB reference the auth middleware resolves identities with
func InitAuth(db *gorm.DB) {
	identityDB = db
}

// extractToken pulls the JWT from the access_token cookie or the
// Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// resolveIdentity validates the token and loads the caller's user row and,
// for admins, their current region assignment. The assignment is read on
// every request: region bindings can change between requests, so resolved
// identities are never cached.
func resolveIdentity(c *gin.Context) (authz.Identity, bool) {
	tokenString, ok := extractToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return authz.Identity{}, false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return authz.Identity{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return authz.Identity{}, false
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid subject claim"))
		return authz.Identity{}, false
	}

	if identityDB == nil {
		log.Error("auth middleware not initialized")
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Auth not initialized"))
		return authz.Identity{}, false
	}

	var user model.User
	if err := identityDB.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Account no longer exists"))
		return authz.Identity{}, false
	}

	identity := authz.Identity{ID: user.ID, Role: user.Role, Region: user.Region}

	if user.Role == model.RoleAdmin {
		var assignment model.RegionAssignment
		err := identityDB.WithContext(c.Request.Context()).
			Preload("Region").
			First(&assignment, "admin_id = ?", user.ID).Error
		switch {
		case err == nil:
			identity.RegionID = &assignment.RegionID
			identity.Region = assignment.Region.Code.DisplayName()
		case err == gorm.ErrRecordNotFound:
			// Unassigned admin: fail-closed empty scope, not an error.
			identity.RegionID = nil
		default:
			log.WithError(err).Warn("failed to resolve admin region assignment")
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to resolve identity"))
			return authz.Identity{}, false
		}
	}

	return identity, true
}

// RequireAuth validates the JWT and resolves the caller into an Identity
// stored in the request context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := resolveIdentity(c)
		if !ok {
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole resolves the caller and checks their role against the
// allowed list before the handler runs. Row-level restrictions are still
// applied downstream by the policy engine.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := resolveIdentity(c)
		if !ok {
			return
		}

		roleAllowed := false
		for _, role := range allowedRoles {
			if identity.Role == role {
				roleAllowed = true
				break
			}
		}
		if !roleAllowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Deny(http.StatusForbidden, "Access denied: insufficient permissions", "ROLE_NOT_PERMITTED"))
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// CurrentIdentity returns the resolved caller set by RequireAuth or
// RequireRole.
func CurrentIdentity(c *gin.Context) (authz.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return authz.Identity{}, false
	}
	identity, ok := v.(authz.Identity)
	return identity, ok
}
