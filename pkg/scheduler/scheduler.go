// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/filehost/pkg/log"
)

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 上一次执行出错
)

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Schedule    string    `json:"schedule"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Runs        int64     `json:"runs"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Scheduler 是定时任务调度器的实现.
type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	jobIDs    map[uuid.UUID]string  // 以任务ID为键，映射到名称
	mu        sync.RWMutex
	logger    zerolog.Logger
}

// Option 配置 Scheduler.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock 使用指定时钟，测试中可传入 clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewScheduler 创建一个新的 Scheduler 实例.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := gocron.NewScheduler(gocron.WithClock(o.clock))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		clock:     o.clock,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		jobIDs:    make(map[uuid.UUID]string),
		logger:    log.Component("scheduler"),
	}, nil
}

// AddCron 添加一个基于 cron 表达式的定时任务.
func (s *Scheduler) AddCron(name string, cronExpr string, job func(ctx context.Context) error, ctx context.Context) error {
	return s.add(name, cronExpr, gocron.CronJob(cronExpr, false), job, ctx)
}

// AddInterval 添加固定间隔执行的任务，调度器启动后立即执行一次.
func (s *Scheduler) AddInterval(name string, interval time.Duration, job func(ctx context.Context) error, ctx context.Context) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}

	return s.add(name, "every "+interval.String(), gocron.DurationJob(interval), job, ctx,
		gocron.WithStartAt(gocron.WithStartImmediately()))
}

// add 注册任务. 任务返回的错误与 panic 都记录到任务状态，不影响后续调度.
func (s *Scheduler) add(name, schedule string, def gocron.JobDefinition, job func(ctx context.Context) error,
	ctx context.Context, extra ...gocron.JobOption,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	wrappedJob := func(ctx context.Context) {
		s.updateJobStatus(name, StatusRunning, "")

		defer func() {
			if r := recover(); r != nil {
				s.updateJobStatus(name, StatusError, fmt.Sprintf("panic in job: %v", r))
				s.logger.Error().Str("job", name).Interface("panic", r).Msg("job panicked")

				return
			}

		}()

		if err := job(ctx); err != nil {
			s.updateJobStatus(name, StatusError, err.Error())
			s.logger.Error().Str("job", name).Err(err).Msg("job failed")

			return
		}

		s.markSuccess(name)
	}

	opts := append([]gocron.JobOption{
		gocron.WithName(name),
		// 上一次未结束时跳过本次
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRuns(func(_ uuid.UUID, jobName string) {
				s.refresh(jobName)
			}),
		),
	}, extra...)

	j, err := s.scheduler.NewJob(def, gocron.NewTask(wrappedJob, ctx), opts...)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	nextRun, _ := j.NextRun()

	s.jobs[name] = j
	s.jobIDs[j.ID()] = name
	s.jobInfos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		Schedule:  schedule,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info().Str("job", name).Str("schedule", schedule).Msg("job added")

	return nil
}

// RemoveJobByName 通过名称移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.jobInfos, name)
	delete(s.jobIDs, job.ID())

	s.logger.Info().Str("job", name).Msg("job removed")

	return nil
}

// GetJobInfoByName 通过名称获取任务信息的副本.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("job with name %s does not exist", name)
	}

	return *info, nil
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("starting scheduler")
	s.scheduler.Start()
}

// Stop 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("stopping scheduler")
	return s.scheduler.Shutdown()
}

// JobsWaitingInQueue 等待执行的任务数量.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.scheduler.JobsWaitingInQueue()
}

// GetJobInfos 返回所有定时任务的信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobInfos))
	for _, info := range s.jobInfos {
		jobs = append(jobs, *info)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

// refresh 同步 gocron 中的运行时间.
func (s *Scheduler) refresh(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, job := s.jobInfos[name], s.jobs[name]
	if info == nil || job == nil {
		return
	}

	if nextRun, err := job.NextRun(); err == nil {
		info.NextRun = nextRun
	}

	if lastRun, err := job.LastRun(); err == nil {
		info.LastRun = lastRun
	}

	info.UpdatedAt = s.clock.Now()
}

func (s *Scheduler) markSuccess(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, exists := s.jobInfos[name]; exists {
		now := s.clock.Now()
		info.Status = StatusScheduled
		info.Error = ""
		info.LastSuccess = now
		info.Runs++
		info.UpdatedAt = now
	}
}

// updateJobStatus 更新任务状态.
func (s *Scheduler) updateJobStatus(name string, status JobStatus, errorMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, exists := s.jobInfos[name]; exists {
		info.Status = status
		info.Error = errorMsg
		info.UpdatedAt = s.clock.Now()

		if status == StatusError {
			info.Runs++
		}
	}
}
