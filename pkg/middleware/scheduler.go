// Package middleware 提供 gin 中间件.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/scheduler"
)

const schedulerKey = "filehost.scheduler"

// SchedulerMiddleware 让管理接口能拿到运行中的调度器（清理任务的状态、排队情况）.
// sched 为 nil 时不注入，GetScheduler 随之返回 nil.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sched != nil {
			c.Set(schedulerKey, sched)
		}

		c.Next()
	}
}

// GetScheduler 取出注入的调度器，未注入时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	v, ok := c.Get(schedulerKey)
	if !ok {
		return nil
	}

	sched, _ := v.(*scheduler.Scheduler)

	return sched
}
