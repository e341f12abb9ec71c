package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/filehost/pkg/internal/jobs"
	"github.com/yeisme/filehost/pkg/scheduler"
)

type fakeSweeper struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSweeper) Sweep(context.Context) (int64, error) {
	f.calls.Add(1)
	return 0, f.err
}

func TestRegisterReaperRunsAtStartup(t *testing.T) {
	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	defer s.Stop()

	sw := &fakeSweeper{err: errors.New("database is locked")}

	if err := jobs.RegisterReaper(s, sw, time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}

	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for sw.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if sw.calls.Load() == 0 {
		t.Fatal("reaper did not run at startup")
	}

	var info scheduler.JobInfo

	for time.Now().Before(deadline) {
		if info, err = s.GetJobInfoByName(jobs.JobFilesPurgeExpired); err != nil {
			t.Fatalf("job info: %v", err)
		}

		if info.Runs > 0 {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	if info.Status != scheduler.StatusError || info.Error != "purge expired: database is locked" {
		t.Fatalf("failed sweep must be recorded as an error: %+v", info)
	}
}

func TestSuccessfulSweepMarksSuccess(t *testing.T) {
	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	defer s.Stop()

	sw := &fakeSweeper{}

	if err := jobs.RegisterReaper(s, sw, time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}

	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, err := s.GetJobInfoByName(jobs.JobFilesPurgeExpired)
		if err != nil {
			t.Fatalf("job info: %v", err)
		}

		if info.Runs > 0 {
			if info.Status != scheduler.StatusScheduled || info.LastSuccess.IsZero() {
				t.Fatalf("successful sweep info = %+v", info)
			}

			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("reaper did not run at startup")
}

func TestRegisterReaperRequiresDeps(t *testing.T) {
	if err := jobs.RegisterReaper(nil, &fakeSweeper{}, time.Hour); err == nil {
		t.Fatal("expected error for nil scheduler")
	}
}
