package middleware

import (
	"net/http"
	"strings"

	"medichat/internal/identity"
	"medichat/internal/transport/httpdto"
	"medichat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		ident, err := provider.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := identity.WithIdentity(c.Request.Context(), ident)
		ctx = logger.WithUserID(ctx, ident.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
