// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const TokenKey = "token"

// BearerToken требует заголовок "Authorization: Bearer <token>".
// Токен не проверяется: сервер не хранит выданные токены, любой непустой принимается.
func BearerToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized, please log in first"})
			c.Abort()
			return
		}

		c.Set(TokenKey, strings.TrimSpace(parts[1]))
		c.Next()
	}
}
