package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"balramcms/api/utils"
)

// AuthCookie is the cookie login sets and logout clears.
const AuthCookie = "jwt_token"

// Context keys set for authenticated requests.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
)

// AuthRequired accepts a JWT from the jwt_token cookie or an
// "Authorization: Bearer" header.
func AuthRequired(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AuthCookie)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized: No token provided"})
			return
		}

		claims, err := jwtManager.ValidateJWT(tokenString)
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
