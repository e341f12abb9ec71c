package configs

import "github.com/spf13/viper"

// EventsConfig 控制文件生命周期事件的发布开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"` // 总开关
	File    FileEventsConfig `mapstructure:"file"`
}

// FileEventsConfig 针对文件的事件开关。
type FileEventsConfig struct {
	Stored bool `mapstructure:"stored"`
	Purged bool `mapstructure:"purged"`
}

// StoredEnabled 是否发布文件写入事件.
func (c *EventsConfig) StoredEnabled() bool { return c.Enabled && c.File.Stored }

// PurgedEnabled 是否发布文件清除事件.
func (c *EventsConfig) PurgedEnabled() bool { return c.Enabled && c.File.Purged }

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：单机部署默认关闭
	v.SetDefault("events.enabled", false)

	v.SetDefault("events.file.stored", true)
	v.SetDefault("events.file.purged", true)
}
