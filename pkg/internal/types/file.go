package types

// UploadResponse 上传成功的响应.
type UploadResponse struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	Size      int64   `json:"size"`
	Mime      string  `json:"mime"`
	ExpiresAt *string `json:"expires_at"` // forever 时为 null
}

// PurgeResponse 清理过期文件的响应.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// ErrorResponse 错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse 健康检查响应.
type HealthResponse struct {
	Component string `json:"component,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}
