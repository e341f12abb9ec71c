package configs

import (
	"time"

	"github.com/spf13/viper"
)

// StorageBackend 存储卷类型.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageS3    StorageBackend = "s3"
)

const (
	DefaultStorageBackend = StorageLocal            // 默认使用本地目录
	DefaultStorageDir     = "/file"                 // 存储目录
	DefaultMaxUploadMB    = 2048                    // 单次上传上限（MB）
	DefaultBaseURL        = "http://localhost:8110" // 对外访问地址
	DefaultReapInterval   = time.Hour               // 过期清理间隔
	DefaultRecordCacheTTL = 5 * time.Minute         // 元数据缓存时长

	bytesPerMB = 1024 * 1024
)

// StorageConfig 文件存储卷配置.
type StorageConfig struct {
	Backend        StorageBackend `mapstructure:"backend"          rule:"oneof=local s3"`
	Dir            string         `mapstructure:"dir"              rule:"required"`
	MaxUploadMB    int64          `mapstructure:"max_upload_mb"    rule:"min=1"`
	BaseURL        string         `mapstructure:"base_url"         rule:"required,url"`
	ReapInterval   time.Duration  `mapstructure:"reap_interval"    rule:"gt=0"`
	RecordCacheTTL time.Duration  `mapstructure:"record_cache_ttl" rule:"min=0"`
}

// MaxUploadBytes 返回单次上传允许的最大字节数.
func (c *StorageConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB * bytesPerMB
}

// FileURL 返回文件的对外访问地址.
func (c *StorageConfig) FileURL(id string) string {
	return c.BaseURL + "/files/" + id
}

// setDefaults 设置存储配置的默认值.
func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", DefaultStorageBackend)
	v.SetDefault("storage.dir", DefaultStorageDir)
	v.SetDefault("storage.max_upload_mb", DefaultMaxUploadMB)
	v.SetDefault("storage.base_url", DefaultBaseURL)
	v.SetDefault("storage.reap_interval", DefaultReapInterval)
	v.SetDefault("storage.record_cache_ttl", DefaultRecordCacheTTL)
}
