package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册调度器相关路由.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	g.GET("/scheduler/jobs", handle.SchedulerJobs)
	g.GET("/scheduler/queue/waiting", handle.SchedulerQueueWaiting)
}
