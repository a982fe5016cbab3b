package middleware

import (
	"log"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"remindme/utils"
)

// EnhancedRecoveryMiddleware converts panics into 500 responses and counts
// them, so one bad request never takes the process down.
func EnhancedRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered on %s %s: %v\n%s",
					c.Request.Method, c.Request.URL.Path, err, debug.Stack())
				utils.TrackError("http", "panic")
				utils.InternalError(c, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
