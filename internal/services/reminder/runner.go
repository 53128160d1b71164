package reminder

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/NordCoder/EduPortal/internal/config/reminder"
)

type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.SchedCfg
	Now func() time.Time

	mFetched  prometheus.Counter
	mReminded prometheus.Counter
	mGaveUp   prometheus.Counter
	mErr      prometheus.Counter
	mLoopDur  prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, cfg *config.SchedCfg) *Runner {
	return &Runner{
		Log: log,
		UC:  uc,
		Cfg: cfg,
		Now: func() time.Time { return time.Now().UTC() },
		mFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reminder_events_fetched_total", Help: "Due events fetched from DB",
		}),
		mReminded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reminder_events_reminded_total", Help: "Events marked reminded",
		}),
		mGaveUp: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reminder_events_abandoned_total", Help: "Events given up after every delivery kept failing",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reminder_errors_total", Help: "Errors in reminder loop",
		}),
		mLoopDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "reminder_loop_duration_seconds", Help: "Reminder tick duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	res, err := r.UC.Tick(ctx, r.Now(), r.Cfg.Window, r.Cfg.BatchLimit)
	if err != nil {
		r.Log.Warn("tick error", zap.Error(err))
	}
	if res.Errors > 0 {
		r.mErr.Add(float64(res.Errors))
	}
	if res.Fetched > 0 {
		r.mFetched.Add(float64(res.Fetched))
		r.mReminded.Add(float64(res.Reminded))
		r.mGaveUp.Add(float64(res.Abandoned))
		r.Log.Info("reminder batch", zap.Int("fetched", res.Fetched), zap.Int("reminded", res.Reminded),
			zap.Int("abandoned", res.Abandoned), zap.Int("errors", res.Errors))
	}
	r.mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
