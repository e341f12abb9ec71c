package handle

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/internal/types"
)

// IndexTemplate 首页模板名.
const IndexTemplate = "index.html"

//go:embed templates/*.html
var templateFS embed.FS

// Templates 返回处理器使用的 HTML 模板，由 router 注册到引擎.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// Index 上传页面.
func (h *Handlers) Index(c *gin.Context) {
	c.HTML(http.StatusOK, IndexTemplate, gin.H{
		"BaseURL":  h.files.BaseURL(),
		"Expiries": types.Expiries(),
		"MaxBytes": h.files.MaxBytes(),
	})
}
