package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Prometheus 指标配置.
// 启用后 /metrics 同时暴露 HTTP、上传下载、清理与 gorm 连接池指标.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"            rule:"required_if=Enabled true,omitempty,startswith=/"`
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"` // go 运行时与进程指标
	Pprof          bool   `mapstructure:"pprof"`           // 挂载 /debug/pprof
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
}
