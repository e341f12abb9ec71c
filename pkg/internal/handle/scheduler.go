package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filehost/pkg/internal/types"
	"github.com/yeisme/filehost/pkg/middleware"
)

// SchedulerJobs 返回所有调度器任务信息.
//
//	@Summary	调度任务列表
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	types.ErrorResponse
//	@Router		/admin/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "scheduler not running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerQueueWaiting 返回队列中等待的任务数.
//
//	@Summary	等待执行的任务数
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	map[string]int
//	@Failure	503	{object}	types.ErrorResponse
//	@Router		/admin/scheduler/queue/waiting [get]
func SchedulerQueueWaiting(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "scheduler not running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
}
