// Package router 管理路由配置，把处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/internal/handle"
)

// Register 绑定全部业务路由：
//
//	GET    /                              -> Index
//	POST   /upload                        -> Upload
//	GET    /files/:id                     -> Serve (HEAD 同样)
//	GET    /health[/db|/storage|/mq]      -> 健康检查
//	POST   /admin/purge                   -> Purge
//	DELETE /admin/files/:id               -> PurgeFile
//	GET    /admin/scheduler/...           -> 调度器状态
func Register(r *gin.Engine, h *handle.Handlers) {
	r.SetHTMLTemplate(handle.Templates())
	r.GET("/", h.Index)

	RegisterFileRoutes(&r.RouterGroup, h)
	RegisterHealthCheckRoute(&r.RouterGroup, h)

	admin := r.Group("/admin")
	RegisterAdminRoutes(admin, h)
	RegisterSchedulerRoutes(admin)
}

// RegisterFileRoutes 注册上传与下载路由.
func RegisterFileRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	g.POST("/upload", h.Upload)
	g.GET("/files/:id", h.Serve)
	g.HEAD("/files/:id", h.Serve)
}

// RegisterAdminRoutes 注册管理路由. 没有鉴权，部署时需在外部限制访问.
func RegisterAdminRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	g.POST("/purge", h.Purge)
	g.DELETE("/files/:id", h.PurgeFile)
}
