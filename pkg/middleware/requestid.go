package middleware

import (
	"crypto/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid"

	ctxPkg "github.com/yeisme/filehost/pkg/context"
)

// maxRequestIDLen 客户端传入的请求 ID 超过该长度时重新生成.
const maxRequestIDLen = 128

// RequestIDMiddleware 为每个请求分配请求 ID，沿用客户端传入的 X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(ctxPkg.RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = NewRequestID()
		}

		c.Request = c.Request.WithContext(ctxPkg.WithRequestID(c.Request.Context(), id))
		c.Writer.Header().Set(ctxPkg.RequestIDHeader, id)
		c.Next()
	}
}

// NewRequestID 生成按时间排序的 ULID.
func NewRequestID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
