package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yeisme/filehost/pkg/cache"
	"github.com/yeisme/filehost/pkg/internal/model"
	"github.com/yeisme/filehost/pkg/internal/storage/kv"
	nlog "github.com/yeisme/filehost/pkg/log"
)

// RecordCachePrefix 元数据缓存键前缀.
const RecordCachePrefix = "filehost:record:"

// RecordStore 文件元数据的持久化访问，正向查询结果缓存在 KV 中.
type RecordStore struct {
	db       *gorm.DB
	cache    *cache.Cache
	cacheTTL time.Duration
	clock    clockwork.Clock

	// deletes 每次删除后递增. 读库期间若有删除发生，读到的行可能已失效，不写入缓存.
	deletes atomic.Uint64
}

// NewRecordStore 创建元数据存储. kvStore 为 nil 或 cacheTTL 为 0 时不缓存.
func NewRecordStore(db *gorm.DB, kvStore kv.KVStore, cacheTTL time.Duration, clock clockwork.Clock) *RecordStore {
	rs := &RecordStore{db: db, cacheTTL: cacheTTL, clock: clock}
	if kvStore != nil && cacheTTL > 0 {
		rs.cache = cache.New(kvStore, RecordCachePrefix)
	}

	return rs
}

// Migrate 幂等地创建或补齐 files 表及过期时间索引.
func (s *RecordStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&model.File{}); err != nil {
		return ioFailure("migrate", err)
	}

	return nil
}

// Insert 持久化一条记录，主键冲突返回 ErrDuplicateID.
func (s *RecordStore) Insert(ctx context.Context, f *model.File) error {
	err := s.db.WithContext(ctx).Create(f).Error
	if err == nil {
		return nil
	}

	if isDuplicateKey(err) {
		return newError(ErrDuplicateID, "duplicate id "+f.ID, err)
	}

	return ioFailure("insert record", err)
}

// Get 按 ID 查询，不存在返回 ErrNotFound.
func (s *RecordStore) Get(ctx context.Context, id string) (*model.File, error) {
	if s.cache != nil {
		if f, err := cache.Get[model.File](ctx, s.cache, id); err == nil {
			return &f, nil
		}
	}

	var f model.File

	gen := s.deletes.Load()

	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "file not found", nil)
	}

	if err != nil {
		return nil, ioFailure("get record", err)
	}

	s.remember(ctx, &f, gen)

	return &f, nil
}

// Exists 判断 ID 是否已有记录.
func (s *RecordStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, ioFailure("count record", err)
	}

	return n > 0, nil
}

// ListExpired 按 ID 顺序返回 expires_at <= cutoff 且 ID 大于 after 的记录.
// 时间文本为定宽 UTC 格式，字符串比较即时间比较.
func (s *RecordStore) ListExpired(ctx context.Context, cutoff, after string, limit int) ([]model.File, error) {
	var out []model.File

	err := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <> '' AND expires_at <= ? AND id > ?", cutoff, after).
		Order("id").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, ioFailure("list expired", err)
	}

	return out, nil
}

// Delete 在一个事务内删除给定 ID 的记录，返回实际删除的行数.
func (s *RecordStore) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var n int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ?", ids).Delete(&model.File{})
		n = res.RowsAffected

		return res.Error
	})
	if err != nil {
		return 0, ioFailure("delete records", err)
	}

	s.deletes.Add(1)
	s.forget(ctx, ids...)

	return n, nil
}

// Count 返回记录总数.
func (s *RecordStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.File{}).Count(&n).Error; err != nil {
		return 0, ioFailure("count records", err)
	}

	return n, nil
}

// remember 缓存时长不超过记录剩余的有效期. gen 是读库前的删除代数.
func (s *RecordStore) remember(ctx context.Context, f *model.File, gen uint64) {
	if s.cache == nil || s.deletes.Load() != gen {
		return
	}

	ttl := s.cacheTTL

	if f.HasExpiry() {
		exp, err := model.ParseTime(*f.ExpiresAt)
		if err == nil {
			left := exp.Sub(s.clock.Now())
			if left <= 0 {
				return
			}

			ttl = min(ttl, left)
		}
	}

	if err := cache.Set(ctx, s.cache, f.ID, *f, ttl); err != nil {
		nlog.Logger().Debug().Err(err).Str("id", f.ID).Msg("cache record failed")
		return
	}

	// 删除可能发生在上面的检查与写入之间，此时撤销刚写入的缓存
	if s.deletes.Load() != gen {
		s.forget(ctx, f.ID)
	}
}

func (s *RecordStore) forget(ctx context.Context, ids ...string) {
	if s.cache == nil {
		return
	}

	for _, id := range ids {
		if err := s.cache.Delete(ctx, id); err != nil {
			nlog.Logger().Warn().Err(err).Str("id", id).Msg("evict cached record failed")
		}
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
