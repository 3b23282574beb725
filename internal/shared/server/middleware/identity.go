package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/shared/server/respond"
)

const (
	clientIDKey    = "clientId"
	ClientIDHeader = "X-Guest-Id"
)

// ClientIdentity requires the X-Guest-Id header and stores it in context.
// Every client's state is keyed by this value.
func ClientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		clientID := strings.TrimSpace(c.GetHeader(ClientIDHeader))
		if clientID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(clientIDKey, clientID)
		c.Next()
	}
}

// ClientIDFromContext fetches the client ID set by ClientIdentity.
func ClientIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(clientIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
