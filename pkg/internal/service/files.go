// Package service 实现文件的写入、读取与过期清理.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/yeisme/filehost/pkg/configs"
	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/internal/ids"
	"github.com/yeisme/filehost/pkg/internal/model"
	"github.com/yeisme/filehost/pkg/internal/storage"
	"github.com/yeisme/filehost/pkg/internal/storage/blob"
	"github.com/yeisme/filehost/pkg/internal/types"
	"github.com/yeisme/filehost/pkg/metrics"
	"github.com/yeisme/filehost/pkg/tracing"
)

const (
	// ChunkSize 每次从上传流读取的字节数.
	ChunkSize = 1 << 20
	// DefaultMime 无法从文件名推断时使用的类型.
	DefaultMime = "application/octet-stream"
)

// FileService 负责上传写入与读取校验.
type FileService struct {
	records  *RecordStore
	blobs    blob.Store
	alloc    *ids.Allocator
	reaper   *Reaper
	events   *Events
	clock    clockwork.Clock
	maxBytes int64
	storage  configs.StorageConfig
}

// NewFileService 创建文件服务.
func NewFileService(records *RecordStore, blobs blob.Store, reaper *Reaper, events *Events,
	cfg configs.StorageConfig, clock clockwork.Clock,
) *FileService {
	return &FileService{
		records:  records,
		blobs:    blobs,
		alloc:    ids.NewAllocator(blobs, ids.WithTaken(records.Exists)),
		reaper:   reaper,
		events:   events,
		clock:    clock,
		maxBytes: cfg.MaxUploadBytes(),
		storage:  cfg,
	}
}

// Services 一次构建的全部服务，共享同一个 Manager 的资源.
type Services struct {
	Records *RecordStore
	Files   *FileService
	Reaper  *Reaper
}

// New 基于存储管理器构建服务.
func New(mgr *storage.Manager, cfg *configs.AppConfig, clock clockwork.Clock) *Services {
	var events *Events
	if mgr.MQ != nil {
		events = NewEvents(mgr.MQ.Publisher(), cfg.Events)
	}

	records := NewRecordStore(mgr.DB.DB, mgr.KV, cfg.Storage.RecordCacheTTL, clock)
	reaper := NewReaper(records, mgr.Blob, events, clock)

	return &Services{
		Records: records,
		Reaper:  reaper,
		Files:   NewFileService(records, mgr.Blob, reaper, events, cfg.Storage, clock),
	}
}

// MaxBytes 单次上传允许的最大字节数.
func (s *FileService) MaxBytes() int64 { return s.maxBytes }

// BaseURL 对外访问的根地址，不带结尾的 "/".
func (s *FileService) BaseURL() string { return s.storage.BaseURL }

// URL 返回文件的对外访问地址.
func (s *FileService) URL(id string) string { return s.storage.FileURL(id) }

// DetectMime 根据文件名扩展名推断类型，去掉 charset 等参数.
func DetectMime(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return DefaultMime
	}

	t := mime.TypeByExtension(ext)
	if t == "" {
		return DefaultMime
	}

	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}

	return t
}

// Upload 已写入存储卷但尚未登记元数据的文件. Commit 与 Discard 必须调用其一.
type Upload struct {
	svc  *FileService
	w    blob.Writer
	id   string
	name string
	mime string
	size int64
	done bool
}

// ID 已分配的标识.
func (u *Upload) ID() string { return u.id }

// Size 已写入的字节数.
func (u *Upload) Size() int64 { return u.size }

// Stage 分配标识并把 r 分块写入存储卷. 超过上限或任何错误都会先删除已写入的部分再返回.
func (s *FileService) Stage(ctx context.Context, r io.Reader, name string) (*Upload, error) {
	ctx, span := tracing.StartSpan(ctx, "FileService.Stage")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		metrics.UploadsTotal.WithLabelValues(metrics.ResultBad).Inc()
		return nil, badRequest("no file uploaded")
	}

	id, w, err := s.alloc.Allocate(ctx)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.ResultError).Inc()
		tracing.RecordError(span, err)

		return nil, ioFailure("allocate id", err)
	}

	size, err := s.copy(ctx, w, r)
	if err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			l := ctxPkg.Logger(ctx)
			l.Error().Err(abortErr).Str("id", id).Msg("remove partial upload failed")
		}

		if errors.Is(err, ErrPayloadTooLarge) {
			metrics.UploadsTotal.WithLabelValues(metrics.ResultTooLarge).Inc()
		} else {
			metrics.UploadsTotal.WithLabelValues(metrics.ResultError).Inc()
		}

		tracing.RecordError(span, err)

		return nil, err
	}

	return &Upload{svc: s, w: w, id: id, name: name, mime: DetectMime(name), size: size}, nil
}

// copy 以 ChunkSize 为单位复制，在写入超限的数据块之前就终止.
func (s *FileService) copy(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)

	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, ioFailure("upload cancelled", err)
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > s.maxBytes {
				return total, newError(ErrPayloadTooLarge,
					fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxBytes), nil)
			}

			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, ioFailure("write upload", werr)
			}
		}

		if errors.Is(rerr, io.EOF) {
			return total, nil
		}

		if rerr != nil {
			return total, ioFailure("read upload", rerr)
		}
	}
}

// Commit 落盘后写入元数据. 插入失败时删除已写入的文件.
func (u *Upload) Commit(ctx context.Context, expiry types.Expiry) (*model.File, error) {
	if u.done {
		return nil, errors.New("upload already finished")
	}

	u.done = true
	s := u.svc

	if err := u.w.Commit(); err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, ioFailure("flush upload", err)
	}

	now := s.clock.Now().UTC()
	rec := &model.File{
		ID:         u.id,
		OrigName:   u.name,
		Mime:       u.mime,
		Size:       u.size,
		UploadedAt: model.FormatTime(now),
	}

	if deadline := expiry.Deadline(now); deadline != nil {
		exp := model.FormatTime(*deadline)
		rec.ExpiresAt = &exp
	}

	if err := s.records.Insert(ctx, rec); err != nil {
		if rmErr := s.blobs.Remove(context.WithoutCancel(ctx), u.id); rmErr != nil {
			l := ctxPkg.Logger(ctx)
			l.Error().Err(rmErr).Str("id", u.id).Msg("remove file after failed insert")
		}

		metrics.UploadsTotal.WithLabelValues(metrics.ResultError).Inc()

		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.UploadBytesTotal.Add(float64(u.size))

	s.events.FileStored(ctx, rec, s.URL(rec.ID))

	l := ctxPkg.Logger(ctx)
	l.Info().Str("id", rec.ID).Int64("size", rec.Size).Str("mime", rec.Mime).Msg("file stored")

	return rec, nil
}

// Discard 放弃上传并删除已写入的内容.
func (u *Upload) Discard() error {
	if u.done {
		return nil
	}

	u.done = true

	return u.w.Abort()
}

// ParseExpiry 解析上传请求中的 expiry，非法取值返回 ErrBadRequest.
func (s *FileService) ParseExpiry(raw string) (types.Expiry, error) {
	e, err := types.ParseExpiry(raw)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.ResultBad).Inc()
		return "", newError(ErrBadRequest, "invalid expiry", err)
	}

	return e, nil
}

// Ingest 校验 expiry、写入文件并登记元数据. 非法 expiry 在任何 I/O 之前被拒绝.
func (s *FileService) Ingest(ctx context.Context, r io.Reader, name, expiry string) (*model.File, error) {
	e, err := s.ParseExpiry(expiry)
	if err != nil {
		return nil, err
	}

	up, err := s.Stage(ctx, r, name)
	if err != nil {
		return nil, err
	}

	return up.Commit(ctx, e)
}
