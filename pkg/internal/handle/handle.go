// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/internal/service"
	"github.com/yeisme/filehost/pkg/internal/storage"
	"github.com/yeisme/filehost/pkg/internal/types"
)

// Pinger 可探活的依赖.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers 持有处理器依赖的服务，由 app 在启动时构建一次.
type Handlers struct {
	files  *service.FileService
	reaper *service.Reaper
	clock  clockwork.Clock
	checks map[string]Pinger
}

// New 创建处理器. mgr 中未初始化的组件在健康检查中报告为不可用.
func New(svcs *service.Services, mgr *storage.Manager, clock clockwork.Clock) *Handlers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	h := &Handlers{
		files:  svcs.Files,
		reaper: svcs.Reaper,
		clock:  clock,
		checks: map[string]Pinger{},
	}

	if mgr != nil {
		if mgr.DB != nil {
			h.checks["db"] = mgr.DB
		}

		if mgr.Blob != nil {
			h.checks["storage"] = mgr.Blob
		}

		if mgr.MQ != nil {
			h.checks["mq"] = mgr.MQ
		}
	}

	return h
}

// statusOf 把服务层错误分类映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrGone):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 记录错误并返回 {"error": msg}. 5xx 不向客户端暴露内部细节.
func abortWithError(c *gin.Context, err error, fallback string) {
	status := statusOf(err)
	l := ctxPkg.Logger(c.Request.Context())

	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Msg(fallback)
		c.AbortWithStatusJSON(status, types.ErrorResponse{Error: fallback})

		return
	}

	l.Warn().Err(err).Int("status", status).Msg("request rejected")
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: service.Message(err, fallback)})
}
