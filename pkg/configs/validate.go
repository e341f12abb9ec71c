package configs

import (
	"github.com/yeisme/filehost/pkg/rule"
)

// Validate 按 rule 标签校验配置.
func (c *AppConfig) Validate() error {
	return rule.ValidateStruct(c)
}
