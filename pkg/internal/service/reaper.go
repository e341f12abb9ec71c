package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/internal/ids"
	"github.com/yeisme/filehost/pkg/internal/model"
	"github.com/yeisme/filehost/pkg/internal/storage/blob"
	"github.com/yeisme/filehost/pkg/metrics"
	"github.com/yeisme/filehost/pkg/queue"
	"github.com/yeisme/filehost/pkg/tracing"
)

// DefaultPurgeBatch 每批处理的过期记录数.
const DefaultPurgeBatch = 100

// Reaper 删除过期记录及其文件. 定时任务、管理接口与读取时的过期命中共用同一套逻辑.
//
// 先删文件再删记录，崩溃后最坏只留下没有记录的孤儿文件.
type Reaper struct {
	records *RecordStore
	blobs   blob.Store
	events  *Events
	clock   clockwork.Clock
	batch   int
}

// NewReaper 创建清理器.
func NewReaper(records *RecordStore, blobs blob.Store, events *Events, clock clockwork.Clock) *Reaper {
	return &Reaper{records: records, blobs: blobs, events: events, clock: clock, batch: DefaultPurgeBatch}
}

// Sweep 以当前时间清理全部过期记录.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	return r.PurgeExpired(ctx, r.clock.Now())
}

// PurgeExpired 清理 expires_at <= now 的记录，返回删除的行数.
// 文件删除失败的记录保留到下一次清理. 可与自身及上传、读取并发执行.
func (r *Reaper) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "Reaper.PurgeExpired")
	defer span.End()

	l := ctxPkg.Logger(ctx)
	cutoff := model.FormatTime(now)
	after := ""

	var total int64

	for {
		batch, err := r.records.ListExpired(ctx, cutoff, after, r.batch)
		if err != nil {
			tracing.RecordError(span, err)
			return total, err
		}

		if len(batch) == 0 {
			break
		}

		after = batch[len(batch)-1].ID

		removed := make([]string, 0, len(batch))
		purged := make([]*model.File, 0, len(batch))

		for i := range batch {
			f := &batch[i]

			// SQL 按文本比较筛选，旧格式的时间在这里按真实时间复核
			if !isExpired(ctx, f, now) {
				continue
			}

			if err := r.blobs.Remove(ctx, f.ID); err != nil {
				l.Warn().Err(err).Str("id", f.ID).Msg("remove expired file failed, keeping record")
				continue
			}

			removed = append(removed, f.ID)
			purged = append(purged, f)
		}

		n, err := r.records.Delete(ctx, removed...)
		if err != nil {
			tracing.RecordError(span, err)
			return total, err
		}

		total += n

		for _, f := range purged {
			r.events.FilePurged(ctx, f, queue.PurgeReasonExpired)
		}

		if len(batch) < r.batch {
			break
		}
	}

	if total > 0 {
		metrics.PurgedFilesTotal.WithLabelValues(metrics.ReasonExpired).Add(float64(total))
		l.Info().Int64("deleted", total).Msg("expired files purged")
	}

	return total, nil
}

// PurgeRecord 删除单条记录与其文件. 文件删除失败时保留记录.
func (r *Reaper) PurgeRecord(ctx context.Context, f *model.File, reason queue.PurgeReason) (int64, error) {
	if err := r.blobs.Remove(ctx, f.ID); err != nil {
		return 0, ioFailure("remove file", err)
	}

	n, err := r.records.Delete(ctx, f.ID)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		metrics.PurgedFilesTotal.WithLabelValues(string(reason)).Add(float64(n))
		r.events.FilePurged(ctx, f, reason)
	}

	return n, nil
}

// PurgeID 管理员按 ID 删除文件，记录不存在或 id 不合法时返回 0.
func (r *Reaper) PurgeID(ctx context.Context, id string) (int64, error) {
	if !ids.Valid(id) {
		return 0, nil
	}

	f, err := r.records.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		// 仍尝试删除可能遗留的孤儿文件
		if rmErr := r.blobs.Remove(ctx, id); rmErr != nil {
			return 0, ioFailure("remove file", rmErr)
		}

		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	return r.PurgeRecord(ctx, f, queue.PurgeReasonAdmin)
}
