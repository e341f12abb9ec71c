// Package types 定义 HTTP 层与服务层之间交换的请求与响应结构.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/yeisme/filehost/pkg/rule"
)

// Expiry 上传时可选的保留时长.
type Expiry string

const (
	ExpiryMinute  Expiry = "1m"
	ExpiryHour    Expiry = "1h"
	ExpiryDay     Expiry = "1d"
	ExpiryWeek    Expiry = "1w"
	ExpiryYear    Expiry = "1y"
	ExpiryForever Expiry = "forever"
)

// Expiries 返回全部可选取值，按时长升序.
func Expiries() []Expiry {
	return []Expiry{ExpiryMinute, ExpiryHour, ExpiryDay, ExpiryWeek, ExpiryYear, ExpiryForever}
}

// expiryRule 允许的取值，空值在 ParseExpiry 中按 forever 处理.
const expiryRule = "oneof=1m 1h 1d 1w 1y forever"

var expiryDurations = map[Expiry]time.Duration{
	ExpiryMinute: time.Minute,
	ExpiryHour:   time.Hour,
	ExpiryDay:    24 * time.Hour,
	ExpiryWeek:   7 * 24 * time.Hour,
	ExpiryYear:   365 * 24 * time.Hour,
}

// ParseExpiry 解析表单中的 expiry 取值. 空值等价于 forever，其余未知取值返回错误.
func ParseExpiry(s string) (Expiry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ExpiryForever, nil
	}

	if err := rule.ValidateVar(s, expiryRule); err != nil {
		return "", fmt.Errorf("invalid expiry %q", s)
	}

	return Expiry(s), nil
}

// Duration 返回保留时长，forever 返回 false.
func (e Expiry) Duration() (time.Duration, bool) {
	d, ok := expiryDurations[e]
	return d, ok
}

// Deadline 返回以 now 为起点的过期时刻，forever 返回 nil.
func (e Expiry) Deadline(now time.Time) *time.Time {
	d, ok := e.Duration()
	if !ok {
		return nil
	}

	t := now.Add(d)

	return &t
}
