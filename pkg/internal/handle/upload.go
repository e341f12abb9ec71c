package handle

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/internal/model"
	"github.com/yeisme/filehost/pkg/internal/service"
	"github.com/yeisme/filehost/pkg/internal/types"
)

const (
	// FileField 上传文件所在的表单字段.
	FileField = "file"
	// ExpiryField 保留时长所在的表单字段或查询参数.
	ExpiryField = "expiry"

	// maxFieldBytes 普通表单字段允许读取的最大长度.
	maxFieldBytes = 64
)

// Upload 流式接收 multipart 上传.
//
// 文件内容边读边写入存储卷，不在内存或临时目录中缓冲. expiry 可以出现在文件之前或之后，
// 也可以作为查询参数；出现在文件之后且非法时，已写入的内容会被删除.
//
//	@Summary		上传文件
//	@Description	multipart/form-data 上传，expiry 取值 1m、1h、1d、1w、1y、forever，默认 forever
//	@Tags			文件
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file					true	"文件"
//	@Param			expiry	formData	string					false	"保留时长"
//	@Success		200		{object}	types.UploadResponse	"上传成功"
//	@Failure		400		{object}	types.ErrorResponse		"请求参数错误"
//	@Failure		413		{object}	types.ErrorResponse		"文件超过大小上限"
//	@Failure		500		{object}	types.ErrorResponse		"服务器内部错误"
//	@Router			/upload [post]
func (h *Handlers) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		expiry = types.ExpiryForever
		err    error
	)

	if raw, ok := c.GetQuery(ExpiryField); ok {
		if expiry, err = h.files.ParseExpiry(raw); err != nil {
			abortWithError(c, err, "invalid expiry")
			return
		}
	}

	reader, err := c.Request.MultipartReader()
	if err != nil {
		abortWithError(c, service.NewBadRequest("expected multipart/form-data", err), "invalid upload")
		return
	}

	var staged *service.Upload

	discard := func() {
		if staged == nil {
			return
		}

		if derr := staged.Discard(); derr != nil {
			l := ctxPkg.Logger(ctx)
			l.Error().Err(derr).Str("id", staged.ID()).Msg("discard staged upload failed")
		}
	}

	for {
		part, perr := reader.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}

		if perr != nil {
			discard()
			abortWithError(c, service.NewBadRequest("malformed multipart body", perr), "invalid upload")

			return
		}

		switch part.FormName() {
		case ExpiryField:
			raw, rerr := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if rerr != nil {
				discard()
				abortWithError(c, service.NewBadRequest("malformed multipart body", rerr), "invalid upload")

				return
			}

			// 表单字段优先于查询参数
			if expiry, err = h.files.ParseExpiry(strings.TrimSpace(string(raw))); err != nil {
				discard()
				abortWithError(c, err, "invalid expiry")

				return
			}
		case FileField:
			if staged != nil {
				break
			}

			if staged, err = h.files.Stage(ctx, part, part.FileName()); err != nil {
				abortWithError(c, err, "upload failed")
				return
			}
		}

		_ = part.Close()
	}

	if staged == nil {
		abortWithError(c, service.NewBadRequest("no file uploaded", nil), "invalid upload")
		return
	}

	rec, err := staged.Commit(ctx, expiry)
	if err != nil {
		abortWithError(c, err, "upload failed")
		return
	}

	c.JSON(http.StatusOK, uploadResponse(rec, h.files.URL(rec.ID)))
}

func uploadResponse(rec *model.File, url string) types.UploadResponse {
	return types.UploadResponse{
		ID:        rec.ID,
		URL:       url,
		Size:      rec.Size,
		Mime:      rec.Mime,
		ExpiresAt: rec.ExpiresAt,
	}
}
