package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/internal/types"
)

// Purge 立即执行一次过期清理.
//
//	@Summary		清理过期文件
//	@Description	立即删除所有已过期的记录及其文件，返回删除的记录数. 部署时需在外部限制访问
//	@Tags			管理
//	@Produce		json
//	@Success		200	{object}	types.PurgeResponse	"删除的记录数"
//	@Failure		500	{object}	types.ErrorResponse	"服务器内部错误"
//	@Router			/admin/purge [post]
func (h *Handlers) Purge(c *gin.Context) {
	n, err := h.reaper.Sweep(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "purge failed")
		return
	}

	c.JSON(http.StatusOK, types.PurgeResponse{Deleted: n})
}

// PurgeFile 删除指定文件，无论是否过期.
//
//	@Summary		删除文件
//	@Description	删除指定 id 的记录与文件，不存在时 deleted 为 0
//	@Tags			管理
//	@Produce		json
//	@Param			id	path		string				true	"文件 id"
//	@Success		200	{object}	types.PurgeResponse	"删除的记录数"
//	@Failure		500	{object}	types.ErrorResponse	"服务器内部错误"
//	@Router			/admin/files/{id} [delete]
func (h *Handlers) PurgeFile(c *gin.Context) {
	n, err := h.reaper.PurgeID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err, "purge failed")
		return
	}

	c.JSON(http.StatusOK, types.PurgeResponse{Deleted: n})
}
