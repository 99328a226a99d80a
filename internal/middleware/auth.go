package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// UserIDKey is the context key for the authenticated user's id
	UserIDKey = "user_id"
	// UserTypeKey is the context key for the authenticated user's type
	UserTypeKey = "user_type"
)

// RequireAuth creates a middleware that validates the Bearer token issued at
// login. Requests without a valid HS256 token signed with the given secret
// are rejected with 401 before reaching the handler.
func RequireAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "Missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set(UserIDKey, sub)
		}
		if userType, ok := claims["user_type"].(string); ok {
			c.Set(UserTypeKey, userType)
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	if log := GetLogger(c); log != nil {
		log.Warn("Rejected unauthenticated request", map[string]interface{}{
			"path":    c.Request.URL.Path,
			"message": message,
		})
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":       "UNAUTHORIZED",
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}
