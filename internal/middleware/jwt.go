package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/membot/internal/pkg/errcode"
	"github.com/xxxsen/membot/internal/pkg/jwt"
	"github.com/xxxsen/membot/internal/pkg/response"
)

const ContextClientIDKey = "client_id"

// JWTAuth requires a bearer token signed with secret. An empty secret
// disables the check.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextClientIDKey, claims.ClientID)
		c.Next()
	}
}
