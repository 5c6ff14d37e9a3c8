package middleware

import (
	"github.com/gin-gonic/gin"
)

// RealIP sets the client IP into Gin context (key: "real_ip").
// Forwarding headers only count when the engine trusts the sending proxy
// (SetTrustedProxies / TrustedPlatform); otherwise this is the socket address.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", c.ClientIP())
		c.Next()
	}
}

// ClientIP returns the address stored by RealIP, falling back to Gin's view.
func ClientIP(c *gin.Context) string {
	return ipFromCtx(c)
}
