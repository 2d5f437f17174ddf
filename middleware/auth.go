package middleware

import (
	"net/http"
	"strings"

	"quicklearner/logger"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

type AuthMiddleware struct {
	log    *logger.Logger
	tokens *services.TokenService
}

func NewAuthMiddleware(log *logger.Logger, tokens *services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

// RequireAuth accepts only access tokens. Email tokens are checked by the
// handlers that consume them.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}
		claims, err := am.tokens.Verify(tokenString, services.PurposeAccess)
		if err != nil {
			am.log.Debug("Rejected token", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.Message(err)})
			return
		}
		c.Set(userIDKey, claims.UserID())
		c.Next()
	}
}

// ExtractToken reads the token from the "token" query parameter, falling back
// to a bearer Authorization header.
func ExtractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// UserID returns the authenticated user, or "" outside RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
