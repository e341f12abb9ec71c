package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/internal/types"
)

const timeout = 2 * time.Second

// Health 存活探针.
//
//	@Summary	存活检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Router		/health [get]
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "ok"})
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/db [get]
func (h *Handlers) HealthDB(c *gin.Context) { h.probe(c, "db") }

// HealthStorage 存储卷健康检查.
//
//	@Summary	存储卷健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/storage [get]
func (h *Handlers) HealthStorage(c *gin.Context) { h.probe(c, "storage") }

// HealthMQ 消息队列健康检查.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/mq [get]
func (h *Handlers) HealthMQ(c *gin.Context) { h.probe(c, "mq") }

func (h *Handlers) probe(c *gin.Context, component string) {
	p, ok := h.checks[component]
	if !ok {
		c.JSON(http.StatusServiceUnavailable, types.HealthResponse{
			Component: component, Status: "unhealthy", Error: component + " client not initialized",
		})

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, types.HealthResponse{
			Component: component, Status: "unhealthy", Error: err.Error(),
		})

		return
	}

	c.JSON(http.StatusOK, types.HealthResponse{Component: component, Status: "ok"})
}
