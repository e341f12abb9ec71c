package queue

import "time"

// EventHeader 所有事件的通用头部.
type EventHeader struct {
	// Topic 冗余记录主题，便于转储后定位来源.
	Topic string `json:"topic"`
	// TraceID 关联 ID，通常为请求 ID.
	TraceID    string    `json:"trace_id,omitempty"`
	Producer   string    `json:"producer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version,omitempty"`
}

// Message 统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 事件中携带的文件元数据.
type FileRef struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Mime      string  `json:"mime"`
	Size      int64   `json:"size"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

// FileStoredPayload filehost.file.stored 的负载.
type FileStoredPayload struct {
	File FileRef `json:"file"`
	URL  string  `json:"url"`
}

// PurgeReason 删除原因.
type PurgeReason string

const (
	PurgeReasonExpired PurgeReason = "expired"
	PurgeReasonAdmin   PurgeReason = "admin"
)

// FilePurgedPayload filehost.file.purged 的负载.
type FilePurgedPayload struct {
	File   FileRef     `json:"file"`
	Reason PurgeReason `json:"reason"`
}
