package model

import (
	"errors"
	"time"
)

// TimeLayout 固定六位小数的 UTC 时间格式，字符串顺序与时间顺序一致.
const TimeLayout = "2006-01-02T15:04:05.000000-07:00"

// ErrUnknownTimestamp 无法识别的时间文本.
var ErrUnknownTimestamp = errors.New("unknown timestamp format")

// 兼容旧数据可能出现的格式.
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// FormatTime 将时间格式化为存储文本，统一转换为 UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime 解析存储文本. 不带时区的文本按 UTC 处理.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, ErrUnknownTimestamp
}
