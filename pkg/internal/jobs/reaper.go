// Package jobs 负责注册业务定时任务.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/filehost/pkg/internal/service"
	"github.com/yeisme/filehost/pkg/log"
	"github.com/yeisme/filehost/pkg/scheduler"
)

// Sweeper 执行一次过期清理.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// RegisterReaper 注册过期清理任务：启动时执行一次，之后每隔 interval 执行.
// 单次失败记录为任务错误，下一次调度照常进行.
func RegisterReaper(sched *scheduler.Scheduler, sweeper Sweeper, interval time.Duration) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if sweeper == nil {
		return errors.New("sweeper is nil")
	}

	return sched.AddInterval(JobFilesPurgeExpired, interval, func(ctx context.Context) error {
		return runPurgeExpired(ctx, sweeper)
	}, context.Background())
}

var _ Sweeper = (*service.Reaper)(nil)

func runPurgeExpired(ctx context.Context, sweeper Sweeper) error {
	l := log.Logger().With().Str("job", JobFilesPurgeExpired).Logger()

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		l.Error().Err(err).Int64("deleted", n).Msg("purge expired failed, retrying next tick")
		return fmt.Errorf("purge expired: %w", err)
	}

	l.Debug().Int64("deleted", n).Msg("purge expired done")

	return nil
}
