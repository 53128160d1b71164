package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain"
	"github.com/NordCoder/EduPortal/internal/domain/content"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs"
)

// Notifier is the part of the notification service that publishing uses.
type Notifier interface {
	SendAnnouncement(ctx context.Context, recipients []*profile.Profile, a *content.Item) domainnotif.BulkResult
	SendUrgentAlert(ctx context.Context, recipients []*profile.Profile, a *content.Item) domainnotif.BulkResult
	SendExamResult(ctx context.Context, student *profile.Profile, exam *content.Item) bool
}

type Validator interface {
	Struct(s any) error
}

type Service struct {
	repo     content.Repo
	profiles profile.Repo
	notifier Notifier
	events   realtime.Publisher
	ids      content.Identities
	validate Validator
	log      *zap.Logger
	now      func() time.Time

	fanouts map[content.Kind]func(context.Context, *content.Item)
}

func New(
	repo content.Repo,
	profiles profile.Repo,
	notifier Notifier,
	events realtime.Publisher,
	ids content.Identities,
	validate Validator,
	log *zap.Logger,
) *Service {
	s := &Service{
		repo:     repo,
		profiles: profiles,
		notifier: notifier,
		events:   events,
		ids:      ids,
		validate: validate,
		log:      obs.Component(log, "content.service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.fanouts = map[content.Kind]func(context.Context, *content.Item){
		content.KindAnnouncement: s.announce,
		content.KindExamResult:   s.notifyStudent,
	}
	return s
}

func queryErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrQuery, err)
}

func checkKind(kind content.Kind) error {
	if _, ok := content.ParseKind(string(kind)); !ok {
		return domain.Invalid("kind", fmt.Sprintf("unknown content kind %q", kind))
	}
	return nil
}

// List returns the matching items. A failing store read is logged and
// degrades to an empty list; only invalid filters are reported.
func (s *Service) List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	f.Limit, f.Offset = f.Window()
	items, err := s.repo.List(ctx, kind, f)
	if errors.Is(err, domain.ErrValidation) {
		return nil, err
	}
	if err != nil {
		obs.WithTrace(ctx, s.log).Error("list content failed", zap.String("kind", string(kind)), zap.Error(err))
		return []*content.Item{}, nil
	}
	if items == nil {
		items = []*content.Item{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, kind content.Kind, id int64) (*content.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	it, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, queryErr("get "+string(kind), err)
	}
	return it, nil
}

// Create stores it as a draft authored by the signed-in user.
func (s *Service) Create(ctx context.Context, kind content.Kind, it *content.Item) (*content.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	author, ok := s.ids.Current(ctx)
	if !ok {
		return nil, domain.ErrAuthRequired
	}
	if it == nil {
		return nil, domain.Invalid("payload", "content is required")
	}

	it.Kind = kind
	it.AuthorID = author
	if kind != content.KindExamResult {
		it.Exam = nil
	}
	if err := s.validate.Struct(it); err != nil {
		return nil, err
	}
	it.Exam.EnsureGrade()

	if err := s.repo.Create(ctx, it); err != nil {
		return nil, queryErr("create "+string(kind), err)
	}
	s.emit(ctx, realtime.OpInsert, it)
	return it, nil
}

// Update applies the non-nil fields of p. A marks change without an explicit
// grade recomputes the grade.
func (s *Service) Update(ctx context.Context, kind content.Kind, id int64, p content.Patch) (*content.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if _, ok := s.ids.Current(ctx); !ok {
		return nil, domain.ErrAuthRequired
	}
	if p.Empty() {
		return nil, domain.Invalid("patch", "at least one field is required")
	}
	if err := s.validate.Struct(p); err != nil {
		return nil, err
	}

	if kind == content.KindExamResult && (p.Marks != nil || p.MaxMarks != nil) {
		cur, err := s.repo.Get(ctx, kind, id)
		if err != nil {
			return nil, queryErr("update "+string(kind), err)
		}
		if cur.Exam == nil {
			return nil, fmt.Errorf("update %s: %w: stored row has no exam fields", kind, domain.ErrQuery)
		}
		ex := *cur.Exam
		if p.Marks != nil {
			ex.Marks = *p.Marks
		}
		if p.MaxMarks != nil {
			ex.MaxMarks = *p.MaxMarks
		}
		if ex.Marks > ex.MaxMarks {
			return nil, domain.Invalid("marks", "marks cannot exceed max_marks")
		}
		if p.Grade == nil {
			g := content.GradeFor(ex.Marks, ex.MaxMarks)
			p.Grade = &g
		}
	}

	it, err := s.repo.Update(ctx, kind, id, p)
	if err != nil {
		return nil, queryErr("update "+string(kind), err)
	}
	s.emit(ctx, realtime.OpUpdate, it)
	return it, nil
}

func (s *Service) Delete(ctx context.Context, kind content.Kind, id int64) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if _, ok := s.ids.Current(ctx); !ok {
		return domain.ErrAuthRequired
	}
	// the delete event carries the last stored row so channel filters apply
	row := map[string]any{"id": id}
	if cur, err := s.repo.Get(ctx, kind, id); err == nil {
		row = rowOf(cur)
	} else if errors.Is(err, domain.ErrNotFound) {
		return queryErr("delete "+string(kind), err)
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return queryErr("delete "+string(kind), err)
	}
	s.emitRow(ctx, realtime.OpDelete, kind, row)
	return nil
}

// Publish marks the item published and notifies its audience. Notification
// failures are logged and never fail the publish.
func (s *Service) Publish(ctx context.Context, kind content.Kind, id int64) (*content.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if _, ok := s.ids.Current(ctx); !ok {
		return nil, domain.ErrAuthRequired
	}

	ctx, span := obs.StartSpan(ctx, "content.service", "content.publish",
		attribute.String("content.kind", string(kind)), attribute.Int64("content.id", id))
	defer span.End()

	it, err := s.repo.Publish(ctx, kind, id, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, queryErr("publish "+string(kind), err)
	}
	if fan, ok := s.fanouts[kind]; ok {
		fan(ctx, it)
	}
	s.emit(ctx, realtime.OpUpdate, it)
	return it, nil
}

func (s *Service) emit(ctx context.Context, op realtime.Op, it *content.Item) {
	s.emitRow(ctx, op, it.Kind, rowOf(it))
}

// emitRow publishes a change event. Failures only log.
func (s *Service) emitRow(ctx context.Context, op realtime.Op, kind content.Kind, row map[string]any) {
	if s.events == nil {
		return
	}
	ev := realtime.ChangeEvent{
		Table: kind.Collection(),
		Op:    op,
		Row:   row,
		At:    s.now(),
	}
	if err := s.events.PublishChange(ctx, ev); err != nil {
		obs.WithTrace(ctx, s.log).Warn("change event not published",
			zap.String("table", ev.Table), zap.String("op", string(op)), zap.Any("id", row["id"]), zap.Error(err))
	}
}

// rowOf flattens it into the JSON shape clients receive; exam fields are
// lifted to the top level so channel filters like student_id=5 match.
func rowOf(it *content.Item) map[string]any {
	row := map[string]any{}
	raw, err := json.Marshal(it)
	if err != nil {
		return map[string]any{"id": it.ID}
	}
	_ = json.Unmarshal(raw, &row)
	if exam, ok := row["exam"].(map[string]any); ok {
		delete(row, "exam")
		for k, v := range exam {
			row[k] = v
		}
	}
	return row
}
