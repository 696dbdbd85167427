package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	circulationdomain "github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	"github.com/smallbiznis/shelfwise/internal/notice"
	obsmetrics "github.com/smallbiznis/shelfwise/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type DelayMarker interface {
	MarkDelayed(ctx context.Context, now time.Time) (int, []events.Event, error)
}

type NoticeSender interface {
	SendOverdueNotices(ctx context.Context, now time.Time) (notice.Result, []events.Event, error)
}

type EventDispatcher interface {
	Dispatch(ctx context.Context, evts ...events.Event) error
}

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Circulation circulationdomain.Service
	Notices     *notice.Sender
	Dispatcher  *events.Dispatcher
	Locker      Locker `optional:"true"`
	Config      Config `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	delays     DelayMarker
	notices    NoticeSender
	dispatcher EventDispatcher
	locker     Locker
	metrics    *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Circulation == nil || p.Notices == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		delays:  p.Circulation,
		notices: p.Notices,
		locker:  p.Locker,
		metrics: obsmetrics.Scheduler(),
	}
	if p.Dispatcher != nil {
		s.dispatcher = p.Dispatcher
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(parent, lockKey(name), s.cfg.LockTTL)
		if err != nil {
			s.metrics.IncJobError(name, err)
			return fmt.Errorf("%s: acquire lock: %w", name, err)
		}
		if !ok {
			s.metrics.IncJobSkipped(name, obsmetrics.SchedulerSkipReasonLockHeld)
			s.log.Debug("scheduler.job.skipped", zap.String("job", name), zap.String("reason", "lock_held"))
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(parent), lockKey(name), token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
			}
		}()
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name, batchSize)
	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name)

	err := fn(ctx, run)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	// deadline is a soft timeout: the next tick picks up the rest
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.String("run_id", run.runID),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job in order and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context, *jobRun) error
	}{
		{JobMarkDelayed, s.MarkDelayedJob},
		{JobOverdueNotices, s.OverdueNoticesJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			s.metrics.IncJobSkipped(job.Name, obsmetrics.SchedulerSkipReasonDisabled)
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// empty list enables every job
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}

// MarkDelayedJob flags active transactions whose due date has passed.
func (s *Scheduler) MarkDelayedJob(ctx context.Context, run *jobRun) error {
	count, evts, err := s.delays.MarkDelayed(ctx, s.clock.Now())
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.mark_delayed.failed", err)
		return err
	}
	run.AddProcessed(count)
	s.metrics.AddBatchProcessed(JobMarkDelayed, "transaction", count)
	s.dispatch(ctx, run, evts)
	return nil
}

// OverdueNoticesJob emails every member holding overdue loans.
func (s *Scheduler) OverdueNoticesJob(ctx context.Context, run *jobRun) error {
	result, evts, err := s.notices.SendOverdueNotices(ctx, s.clock.Now())
	s.dispatch(ctx, run, evts)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.overdue_notices.failed", err)
		return err
	}
	if result.Disabled {
		s.logger(ctx).Info("overdue notices disabled", zap.String("run_id", run.runID))
		return nil
	}
	run.AddProcessed(result.Sent)
	for i := 0; i < result.Failed; i++ {
		run.IncError()
	}
	s.metrics.AddBatchProcessed(JobOverdueNotices, "member", result.Sent)
	return nil
}

func (s *Scheduler) dispatch(ctx context.Context, run *jobRun, evts []events.Event) {
	if s.dispatcher == nil || len(evts) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), evts...); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.dispatch.failed", err)
	}
}
