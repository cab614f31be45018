package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore marks tenant-scoped responses as uncacheable by shared caches.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "private, no-store")
		c.Next()
	}
}
