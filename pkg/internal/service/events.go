package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/filehost/pkg/configs"
	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/internal/model"
	"github.com/yeisme/filehost/pkg/queue"
)

// Events 发布文件生命周期事件. 发布失败只记录日志，不影响主流程.
type Events struct {
	pub message.Publisher
	cfg configs.EventsConfig
}

// NewEvents 创建事件发布器，pub 为 nil 时不发布.
func NewEvents(pub message.Publisher, cfg configs.EventsConfig) *Events {
	return &Events{pub: pub, cfg: cfg}
}

func fileRef(f *model.File) queue.FileRef {
	return queue.FileRef{ID: f.ID, Name: f.OrigName, Mime: f.Mime, Size: f.Size, ExpiresAt: f.ExpiresAt}
}

// FileStored 上传提交后调用.
func (e *Events) FileStored(ctx context.Context, f *model.File, url string) {
	if e == nil || e.pub == nil || !e.cfg.StoredEnabled() {
		return
	}

	err := queue.PublishFileStored(e.pub, queue.FileStoredPayload{File: fileRef(f), URL: url},
		queue.WithTraceID(ctxPkg.GetRequestID(ctx)))
	if err != nil {
		l := ctxPkg.Logger(ctx)
		l.Warn().Err(err).Str("id", f.ID).Msg("publish file.stored failed")
	}
}

// FilePurged 记录删除后调用.
func (e *Events) FilePurged(ctx context.Context, f *model.File, reason queue.PurgeReason) {
	if e == nil || e.pub == nil || !e.cfg.PurgedEnabled() {
		return
	}

	err := queue.PublishFilePurged(e.pub, queue.FilePurgedPayload{File: fileRef(f), Reason: reason},
		queue.WithTraceID(ctxPkg.GetRequestID(ctx)))
	if err != nil {
		l := ctxPkg.Logger(ctx)
		l.Warn().Err(err).Str("id", f.ID).Msg("publish file.purged failed")
	}
}
