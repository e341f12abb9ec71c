package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/configs"
	ctxPkg "github.com/yeisme/filehost/pkg/context"
)

// CORSMiddleware 允许任意来源上传与下载.
// 浏览器脚本需要读到文件名、ETag 和请求 ID，所以显式暴露这些响应头.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Content-Length", "Range", "If-None-Match", ctxPkg.RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Disposition", "Content-Length", "Content-Range", "Accept-Ranges", "ETag", ctxPkg.RequestIDHeader,
		},
		AllowFiles: true,
		MaxAge:     12 * time.Hour,
	}

	if cfg.Debug {
		config.MaxAge = 0
	}

	return cors.New(config)
}
