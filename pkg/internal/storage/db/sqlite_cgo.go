//go:build !no_sqlite && cgo

package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/filehost/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (CGo版本，mattn/go-sqlite3 参数格式).
func createSQLiteDialector(dsn string, cfg *configs.DBConfig) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", dsn, cfg.BusyTimeoutMS))
}

// 注册SQLite dialector工厂函数 (CGo版本).
func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
