package handle

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/internal/model"
)

// DefaultMaxAge 未设置过期时间的文件允许客户端缓存的时长.
const DefaultMaxAge = time.Hour

// Serve 返回文件内容.
//
// 支持 Range、If-None-Match 与 HEAD. 已过期或文件缺失时返回 410.
//
//	@Summary		下载文件
//	@Description	按 id 返回原始文件内容，Content-Type 为上传时推断的类型
//	@Tags			文件
//	@Produce		application/octet-stream
//	@Param			id	path		string				true	"文件 id"
//	@Success		200	{file}		file				"文件内容"
//	@Failure		404	{object}	types.ErrorResponse	"文件不存在"
//	@Failure		410	{object}	types.ErrorResponse	"文件已过期或已被删除"
//	@Router			/files/{id} [get]
func (h *Handlers) Serve(c *gin.Context) {
	id := c.Param("id")

	d, err := h.files.Retrieve(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err, "read failed")
		return
	}

	defer func() {
		if cerr := d.Close(); cerr != nil {
			l := ctxPkg.Logger(c.Request.Context())
			l.Warn().Err(cerr).Str("id", id).Msg("close file failed")
		}
	}()

	now := h.clock.Now()

	header := c.Writer.Header()
	header.Set("Content-Type", d.File.Mime)
	header.Set("Content-Disposition", ContentDisposition(d.File.OrigName))
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("ETag", ETag(d.File))
	header.Set("Cache-Control", "private, max-age="+strconv.FormatInt(maxAge(d.Expiry, now), 10))

	modTime, err := model.ParseTime(d.File.UploadedAt)
	if err != nil {
		modTime = time.Time{}
	}

	http.ServeContent(c.Writer, c.Request, "", modTime, d.Content)
}

// ETag 由记录的不变字段计算，同一 id 的内容写入后不会再变化.
func ETag(f *model.File) string {
	sum := xxhash.Sum64String(f.ID + "\x00" + strconv.FormatInt(f.Size, 10) + "\x00" + f.UploadedAt)
	return `"` + strconv.FormatUint(sum, 16) + `"`
}

func maxAge(expiry func() (time.Time, bool), now time.Time) int64 {
	limit := DefaultMaxAge

	if exp, ok := expiry(); ok {
		if left := exp.Sub(now); left < limit {
			limit = left
		}
	}

	if limit < 0 {
		return 0
	}

	return int64(limit / time.Second)
}

// ContentDisposition 生成 inline 的 Content-Disposition.
//
// filename 只保留可打印 ASCII，引号与反斜杠转义，控制字符丢弃；原名含非 ASCII 字符时
// 追加 RFC 5987 编码的 filename*.
func ContentDisposition(name string) string {
	var (
		plain    strings.Builder
		clean    strings.Builder
		extended bool
	)

	for _, r := range name {
		switch {
		case r == utf8.RuneError, r < 0x20, r == 0x7f:
			continue
		case r > 0x7e:
			extended = true

			plain.WriteByte('_')
		case r == '"', r == '\\':
			plain.WriteByte('\\')
			plain.WriteRune(r)
		default:
			plain.WriteRune(r)
		}

		clean.WriteRune(r)
	}

	fallback := plain.String()
	if fallback == "" {
		fallback = "download"
	}

	v := `inline; filename="` + fallback + `"`
	if extended {
		v += "; filename*=UTF-8''" + encodeRFC5987(clean.String())
	}

	return v
}

func encodeRFC5987(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isAttrChar(ch) {
			b.WriteByte(ch)
			continue
		}

		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0f])
	}

	return b.String()
}

func isAttrChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	}

	return strings.IndexByte("!#$&+-.^_`|~", ch) >= 0
}
