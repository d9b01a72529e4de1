package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/config"
	statusdomain "github.com/smallbiznis/gymdesk/internal/membershipstatus/domain"
	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	productdomain "github.com/smallbiznis/gymdesk/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	AlertExpiringSoon = "expiring_soon"
	AlertLowStock     = "low_stock"
	AlertOutOfStock   = "out_of_stock"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	StatusSvc  statusdomain.Service
	ProductSvc productdomain.Service
	AuditSvc   auditdomain.Service
	Config     Config `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	statusSvc  statusdomain.Service
	productSvc productdomain.Service
	auditSvc   auditdomain.Service

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// SweepResult holds the counts found by one alert sweep.
type SweepResult struct {
	ExpiringSoon int
	LowStock     int
	OutOfStock   int
	Threshold    int
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.StatusSvc == nil || p.ProductSvc == nil || p.AuditSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		statusSvc:  p.StatusSvc,
		productSvc: p.ProductSvc,
		auditSvc:   p.AuditSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.beginRun(ctx, name)
	log := s.logger(ctx).With(zap.String("job", name))
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		s.finishRun(ctx, run, err)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick retries
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job immediately.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobAlertSweep, s.isJobEnabled(JobAlertSweep), s.runSweep},
		{JobActivityRetention, s.isJobEnabled(JobActivityRetention), s.runRetention},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

// Start registers the jobs on a cron runner in the business time zone. The
// sweep schedule is read from policy at start; a changed schedule takes
// effect on restart, while enabling or disabling applies on the next tick.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	policy := s.policy.Get()
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithLocation(policy.Location()), cron.WithParser(config.CronParser))

	if s.isJobEnabled(JobAlertSweep) {
		schedule := strings.TrimSpace(policy.Sweep.Schedule)
		if schedule == "" {
			schedule = config.DefaultPolicy().Sweep.Schedule
		}
		if _, err := c.AddFunc(schedule, s.cronFunc(ctx, JobAlertSweep, s.runSweep)); err != nil {
			cancel()
			return fmt.Errorf("%s: %w", JobAlertSweep, err)
		}
	}
	if s.isJobEnabled(JobActivityRetention) {
		if _, err := c.AddFunc(s.cfg.RetentionSchedule, s.cronFunc(ctx, JobActivityRetention, s.runRetention)); err != nil {
			cancel()
			return fmt.Errorf("%s: %w", JobActivityRetention, err)
		}
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.log.Info("scheduler started",
		zap.String("sweep_schedule", policy.Sweep.Schedule),
		zap.String("retention_schedule", s.cfg.RetentionSchedule),
		zap.String("timezone", policy.Location().String()),
	)
	return nil
}

// Stop cancels running jobs and waits for them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	cancel()
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) cronFunc(ctx context.Context, name string, job func(context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduler job panicked", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		if err := job(ctx); err != nil {
			s.log.Warn("scheduler job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context) error {
	if !s.policy.Get().Sweep.Enabled {
		return nil
	}
	return s.runJob(ctx, JobAlertSweep, s.cfg.SweepTimeout, func(ctx context.Context) error {
		_, err := s.SweepAlerts(ctx)
		return err
	})
}

func (s *Scheduler) runRetention(ctx context.Context) error {
	return s.runJob(ctx, JobActivityRetention, s.cfg.RetentionTimeout, func(ctx context.Context) error {
		_, err := s.PurgeActivity(ctx)
		return err
	})
}

// SweepAlerts counts members about to expire and products running low, then
// publishes the counts as gauges and a single ALERT_SWEEP activity entry.
func (s *Scheduler) SweepAlerts(ctx context.Context) (SweepResult, error) {
	run := runFrom(ctx)

	summary, err := s.statusSvc.ResolveAll(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	low, err := s.productSvc.LowStock(ctx, 0)
	if err != nil {
		return SweepResult{}, err
	}
	out, err := s.productSvc.OutOfStock(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{
		ExpiringSoon: summary.ExpiringSoon,
		LowStock:     len(low),
		OutOfStock:   len(out),
		Threshold:    s.policy.Get().LowStockThreshold,
	}
	run.record(AlertExpiringSoon, res.ExpiringSoon)
	run.record(AlertLowStock, res.LowStock)
	run.record(AlertOutOfStock, res.OutOfStock)

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.SetAlert(AlertExpiringSoon, res.ExpiringSoon)
	schedMetrics.SetAlert(AlertLowStock, res.LowStock)
	schedMetrics.SetAlert(AlertOutOfStock, res.OutOfStock)

	fields := []zap.Field{
		zap.Int(AlertExpiringSoon, res.ExpiringSoon),
		zap.Int(AlertLowStock, res.LowStock),
		zap.Int(AlertOutOfStock, res.OutOfStock),
	}
	if res.ExpiringSoon > 0 || res.LowStock > 0 || res.OutOfStock > 0 {
		s.logger(ctx).Warn("alerts pending", fields...)
	} else {
		s.logger(ctx).Info("no alerts pending", fields...)
	}

	desc := fmt.Sprintf("%d memberships expiring soon, %d products low on stock, %d out of stock",
		res.ExpiringSoon, res.LowStock, res.OutOfStock)
	err = s.auditSvc.Record(ctx, nil, auditdomain.Entry{
		Actor:       actor.System,
		Action:      auditdomain.ActionAlertSweep,
		Description: desc,
		Metadata: map[string]any{
			AlertExpiringSoon:     res.ExpiringSoon,
			AlertLowStock:         res.LowStock,
			AlertOutOfStock:       res.OutOfStock,
			"low_stock_threshold": res.Threshold,
		},
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// PurgeActivity deletes activity entries older than the retention window.
// A retention of zero days keeps everything.
func (s *Scheduler) PurgeActivity(ctx context.Context) (int64, error) {
	days := s.policy.Get().AuditRetentionDays
	if days <= 0 {
		return 0, nil
	}
	before := s.clock.Now().AddDate(0, 0, -days)
	removed, err := s.auditSvc.Purge(ctx, before)
	if err != nil {
		return 0, err
	}
	runFrom(ctx).record("purged", int(removed))
	obsmetrics.Scheduler().AddPurged(removed)
	return removed, nil
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// empty list enables everything
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
