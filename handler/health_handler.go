package handler

import (
	"github.com/gin-gonic/gin"

	"remindme/utils"
)

// HealthHandler reports liveness plus a coarse system snapshot.
func HealthHandler(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":         "ok",
		"cpu_percent":    utils.GetCPUUsage(),
		"memory_percent": utils.GetMemoryUsage(),
	})
}
