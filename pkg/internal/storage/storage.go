// Package storage 聚合元数据库、文件存储卷、KV 与消息队列，由进程中唯一的 Manager 持有.
//
// Example:
//
//	mgr, err := storage.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer mgr.Close()
//
//	svcs := service.New(mgr, cfg, clock)
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/filehost/pkg/configs"
	"github.com/yeisme/filehost/pkg/internal/storage/blob"
	dbc "github.com/yeisme/filehost/pkg/internal/storage/db"
	"github.com/yeisme/filehost/pkg/internal/storage/kv"
	"github.com/yeisme/filehost/pkg/internal/storage/mq"
	nlog "github.com/yeisme/filehost/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB   *dbc.Client
	Blob blob.Store
	KV   kv.KVStore
	MQ   *mq.Client
}

// New 按配置依次打开存储卷、数据库、KV 与 MQ，任一失败时关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	var err error

	if m.Blob, err = blob.New(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	if m.DB, err = dbc.New(ctx, &cfg.DB, cfg.Metrics.Enabled); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if m.KV, err = kv.New(ctx, &cfg.KV); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open kv: %w", err)
	}

	if m.MQ, err = mq.New(ctx, &cfg.MQ, cfg.Metrics.Enabled && cfg.MQ.Common.EnableMetrics); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	}

	nlog.Logger().Info().
		Str("backend", string(cfg.Storage.Backend)).
		Str("db", string(cfg.DB.Type)).
		Str("kv", cfg.KV.Type).
		Str("mq", string(cfg.MQ.Type)).
		Msg("storage manager initialized")

	return m, nil
}

// Close 按打开的逆序释放资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	if m.Blob != nil {
		errs = append(errs, m.Blob.Close())
	}

	return errors.Join(errs...)
}
