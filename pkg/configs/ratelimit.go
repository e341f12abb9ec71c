package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// 默认速率限制配置.
	DefaultRateLimitEnabled     = false
	DefaultRateLimitRPS         = 50.0
	DefaultRateLimitBurst       = 100
	DefaultRateLimitKey         = "ip"
	DefaultRateLimitUploadRPS   = 2.0
	DefaultRateLimitUploadBurst = 5
	DefaultRateLimitIdleTTL     = 10 * time.Minute
)

// RateLimitConfig 速率限制配置.
//
// Upload* 单独约束 POST /upload，上传占用磁盘和带宽，比下载更贵.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"gte=0"`
	Burst   int     `mapstructure:"burst" rule:"gte=0"`
	// Key 限流维度：global、ip、header:Header-Name
	Key         string        `mapstructure:"key"`
	UploadRPS   float64       `mapstructure:"upload_rps"   rule:"gte=0"` // 0 表示上传沿用通用限额
	UploadBurst int           `mapstructure:"upload_burst" rule:"gte=0"`
	IdleTTL     time.Duration `mapstructure:"idle_ttl"` // 闲置 limiter 的回收时间
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.upload_rps", DefaultRateLimitUploadRPS)
	v.SetDefault("rate_limit.upload_burst", DefaultRateLimitUploadBurst)
	v.SetDefault("rate_limit.idle_ttl", DefaultRateLimitIdleTTL)
}
