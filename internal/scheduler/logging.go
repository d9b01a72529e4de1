package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/smallbiznis/gymdesk/internal/actor"
	obscontext "github.com/smallbiznis/gymdesk/internal/observability/context"
	obslogger "github.com/smallbiznis/gymdesk/internal/observability/logger"
	"go.uber.org/zap"
)

// jobRun is the bookkeeping for one execution of a job. Jobs report what
// they found under named outcomes, e.g. "expiring_soon" or "purged".
type jobRun struct {
	job     string
	runID   string
	started time.Time
	counts  map[string]int
	failed  bool
}

type jobRunKey struct{}

func (r *jobRun) record(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.counts[outcome] += n
}

// beginRun attaches a run to ctx unless one is already there, in which case
// the caller is nested inside another job and does not own the log lines.
// Activity written during the run is attributed to the system operator.
func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *jobRun, bool) {
	if existing := runFrom(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:     job,
		runID:   s.genID.Generate().String(),
		started: s.clock.Now(),
		counts:  map[string]int{},
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, actor.System)
	ctx = obscontext.WithRequestID(ctx, run.runID)

	s.logger(ctx).Info("scheduler.job.start", zap.String("job", job))
	return ctx, run, true
}

func (s *Scheduler) finishRun(ctx context.Context, run *jobRun, err error) {
	run.failed = err != nil
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.Duration("elapsed", s.clock.Now().Sub(run.started)),
	}
	outcomes := make([]string, 0, len(run.counts))
	for k := range run.counts {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)
	for _, k := range outcomes {
		fields = append(fields, zap.Int(k, run.counts[k]))
	}

	if run.failed {
		s.logger(ctx).Warn("scheduler.job.finish", append(fields, zap.Error(err))...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

func runFrom(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

// logger carries run_id as request_id and the system actor.
func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
