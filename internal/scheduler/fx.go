package scheduler

import (
	"context"

	obsmetrics "github.com/smallbiznis/gymdesk/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

// NewScheduler takes the scheduler metrics so they are registered with the
// service labels before the first job runs.
func NewScheduler(lc fx.Lifecycle, sched *Scheduler, _ *obsmetrics.SchedulerMetrics) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			return sched.Stop(ctx)
		},
	})
}
