// Package api 把 HTTP 接口绑定到 gin 引擎.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/configs"
	"github.com/yeisme/filehost/pkg/internal/handle"
	"github.com/yeisme/filehost/pkg/internal/router"
)

// RegisterGroup 注册文件服务的全部路由，调试模式下附带 Swagger 文档.
func RegisterGroup(e *gin.Engine, h *handle.Handlers, cfg *configs.AppConfig) *gin.Engine {
	router.Register(e, h)
	router.RegisterSwaggerRoute(e, cfg)

	return e
}
