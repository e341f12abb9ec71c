//go:build !no_sqlite && !cgo

package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/filehost/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (纯 Go 版本，modernc pragma 参数格式).
func createSQLiteDialector(dsn string, cfg *configs.DBConfig) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", dsn, cfg.BusyTimeoutMS))
}

// 注册SQLite dialector工厂函数.
func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
