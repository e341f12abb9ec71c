// Package model 定义持久化到元数据库的记录.
package model

// File 一条已存储文件的元数据，ID 同时是存储卷中的文件名.
//
// 时间字段以 ISO-8601 UTC 文本存储，格式见 FormatTime.
type File struct {
	ID         string  `gorm:"primaryKey;type:text"         json:"id"`
	OrigName   string  `gorm:"type:text;not null"           json:"orig_name"`
	Mime       string  `gorm:"type:text;not null"           json:"mime"`
	Size       int64   `gorm:"not null"                     json:"size"`
	UploadedAt string  `gorm:"type:text;not null"           json:"uploaded_at"`
	ExpiresAt  *string `gorm:"type:text;index:idx_files_expires_at" json:"expires_at"`
}

// TableName 沿用已有部署的表名.
func (File) TableName() string { return "files" }

// HasExpiry 是否设置了过期时间.
func (f *File) HasExpiry() bool {
	return f.ExpiresAt != nil && *f.ExpiresAt != ""
}
