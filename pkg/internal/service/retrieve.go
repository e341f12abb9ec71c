package service

import (
	"context"
	"errors"
	"time"

	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/internal/ids"
	"github.com/yeisme/filehost/pkg/internal/model"
	"github.com/yeisme/filehost/pkg/internal/storage/blob"
	"github.com/yeisme/filehost/pkg/metrics"
	"github.com/yeisme/filehost/pkg/queue"
	"github.com/yeisme/filehost/pkg/tracing"
)

// Download 可读取的文件及其元数据，调用方负责关闭 Content.
type Download struct {
	File    *model.File
	Content blob.Object
}

// Close 关闭文件句柄.
func (d *Download) Close() error { return d.Content.Close() }

// Expiry 返回过期时刻. 未设置或无法解析时 ok 为 false.
func (d *Download) Expiry() (time.Time, bool) {
	if !d.File.HasExpiry() {
		return time.Time{}, false
	}

	t, err := model.ParseTime(*d.File.ExpiresAt)

	return t, err == nil
}

// Retrieve 校验记录存在且未过期后打开文件.
//
// 已过期的记录会被立即清除并返回 ErrGone；记录存在但文件缺失同样返回 ErrGone，此时不删除记录.
func (s *FileService) Retrieve(ctx context.Context, id string) (*Download, error) {
	ctx, span := tracing.StartSpan(ctx, "FileService.Retrieve")
	defer span.End()

	d, err := s.retrieve(ctx, id)

	switch {
	case err == nil:
		metrics.RetrievalsTotal.WithLabelValues(metrics.ResultOK).Inc()
	case errors.Is(err, ErrNotFound):
		metrics.RetrievalsTotal.WithLabelValues(metrics.ResultNotFound).Inc()
	case errors.Is(err, ErrGone):
		metrics.RetrievalsTotal.WithLabelValues(metrics.ResultGone).Inc()
	default:
		metrics.RetrievalsTotal.WithLabelValues(metrics.ResultError).Inc()
		tracing.RecordError(span, err)
	}

	return d, err
}

func (s *FileService) retrieve(ctx context.Context, id string) (*Download, error) {
	if !ids.Valid(id) {
		return nil, newError(ErrNotFound, "file not found", nil)
	}

	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if isExpired(ctx, rec, s.clock.Now()) {
		if _, err := s.reaper.PurgeRecord(ctx, rec, queue.PurgeReasonExpired); err != nil {
			l := ctxPkg.Logger(ctx)
			l.Warn().Err(err).Str("id", id).Msg("purge expired file on read failed")
		}

		return nil, newError(ErrGone, "file expired", nil)
	}

	obj, err := s.blobs.Open(ctx, id)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, newError(ErrGone, "file no longer available", nil)
	}

	if err != nil {
		return nil, ioFailure("open file", err)
	}

	return &Download{File: rec, Content: obj}, nil
}

// isExpired expires_at <= now 视为过期. 无法解析的时间按未过期处理并记录告警.
func isExpired(ctx context.Context, f *model.File, now time.Time) bool {
	if !f.HasExpiry() {
		return false
	}

	exp, err := model.ParseTime(*f.ExpiresAt)
	if err != nil {
		l := ctxPkg.Logger(ctx)
		l.Warn().Str("id", f.ID).Str("expires_at", *f.ExpiresAt).Msg("unrecognized expiry timestamp, treating as not expired")

		return false
	}

	return !exp.After(now)
}
