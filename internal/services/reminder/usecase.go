package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/content"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/obs"
)

type EventRepo interface {
	DueEvents(ctx context.Context, from, to time.Time, limit int) ([]*content.Item, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

type Audience interface {
	ListByRoles(ctx context.Context, roles ...profile.Role) ([]*profile.Profile, error)
}

type Notifier interface {
	SendEventReminder(ctx context.Context, recipients []*profile.Profile, ev *content.Item) domainnotif.BulkResult
}

// DefaultMaxAttempts is how many ticks may fail every delivery of one event
// before it is given up.
const DefaultMaxAttempts = 3

type Usecase struct {
	Events      EventRepo
	Audience    Audience
	Notifier    Notifier
	Log         *zap.Logger
	MaxAttempts int

	mu       sync.Mutex
	failures map[int64]int
}

func NewUC(events EventRepo, audience Audience, notifier Notifier, log *zap.Logger) *Usecase {
	return &Usecase{
		Events:      events,
		Audience:    audience,
		Notifier:    notifier,
		Log:         obs.Component(log, "reminder.uc"),
		MaxAttempts: DefaultMaxAttempts,
		failures:    map[int64]int{},
	}
}

type TickResult struct {
	Fetched   int
	Reminded  int
	Abandoned int
	Errors    int
}

// failed counts a tick in which every delivery for id failed and reports
// whether the event has run out of attempts.
func (u *Usecase) failed(id int64) (attempts int, exhausted bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failures == nil {
		u.failures = map[int64]int{}
	}
	u.failures[id]++
	attempts = u.failures[id]
	limit := u.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	if attempts >= limit {
		delete(u.failures, id)
		return attempts, true
	}
	return attempts, false
}

func (u *Usecase) settled(id int64) {
	u.mu.Lock()
	delete(u.failures, id)
	u.mu.Unlock()
}

// Tick reminds students and teachers of published events starting in
// [now, now+window). An event is marked reminded once at least one delivery
// succeeded or nobody was reachable. When every delivery fails the next tick
// retries it, up to MaxAttempts ticks; then it is marked reminded anyway and
// counted as abandoned.
func (u *Usecase) Tick(ctx context.Context, now time.Time, window time.Duration, limit int) (TickResult, error) {
	var res TickResult
	if limit <= 0 {
		limit = 100
	}

	tr := otel.Tracer("reminder.uc")
	ctxTick, span := tr.Start(ctx, "reminder.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit), attribute.String("window", window.String())),
	)
	defer span.End()

	due, err := u.Events.DueEvents(ctxTick, now, now.Add(window), limit)
	if err != nil {
		span.RecordError(err)
		res.Errors++
		return res, fmt.Errorf("fetch due events: %w", err)
	}
	res.Fetched = len(due)
	span.SetAttributes(attribute.Int("batch.fetched", len(due)))
	if len(due) == 0 {
		return res, nil
	}

	recipients, err := u.Audience.ListByRoles(ctxTick, profile.RoleStudent, profile.RoleTeacher)
	if err != nil {
		span.RecordError(err)
		res.Errors++
		return res, fmt.Errorf("list recipients: %w", err)
	}

	for _, ev := range due {
		ctxEv, sp := tr.Start(ctxTick, "reminder.event", trace.WithAttributes(attribute.Int64("event.id", ev.ID)))
		bulk := u.Notifier.SendEventReminder(ctxEv, recipients, ev)
		sp.SetAttributes(attribute.Int("delivery.success", bulk.Success), attribute.Int("delivery.failed", bulk.Failed))

		status := "ok"
		if bulk.Total > 0 && bulk.Success == 0 {
			res.Errors++
			attempts, exhausted := u.failed(ev.ID)
			if !exhausted {
				sp.SetAttributes(attribute.String("reminder.status", "retry"))
				sp.End()
				u.Log.Warn("event reminder not delivered; will retry",
					zap.Int64("event_id", ev.ID), zap.Int("failed", bulk.Failed), zap.Int("attempt", attempts))
				continue
			}
			status = "abandoned"
			u.Log.Error("event reminder abandoned after repeated failures",
				zap.Int64("event_id", ev.ID), zap.Int("attempts", attempts))
		}
		if err := u.Events.MarkReminded(ctxEv, ev.ID, now); err != nil {
			res.Errors++
			sp.RecordError(err)
			sp.End()
			u.Log.Error("mark reminded failed", zap.Int64("event_id", ev.ID), zap.Error(err))
			continue
		}
		u.settled(ev.ID)
		if status == "abandoned" {
			res.Abandoned++
		} else {
			res.Reminded++
		}
		sp.SetAttributes(attribute.String("reminder.status", status))
		sp.End()
	}

	span.SetAttributes(attribute.Int("batch.reminded", res.Reminded), attribute.Int("batch.abandoned", res.Abandoned),
		attribute.Int("batch.errors", res.Errors))
	return res, nil
}
