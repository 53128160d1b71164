package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/NordCoder/EduPortal/internal/domain"
	"github.com/NordCoder/EduPortal/internal/domain/content"
)

var _ content.Repo = (*ContentRepo)(nil)

// ContentRepo stores the four content kinds. It runs on database/sql so the
// dynamic statements built with squirrel can share one code path.
type ContentRepo struct {
	db      *sql.DB
	timeout time.Duration
	sb      sq.StatementBuilderType
}

func NewContentRepo(db *sql.DB, queryTimeout time.Duration) *ContentRepo {
	return &ContentRepo{
		db:      db,
		timeout: queryTimeout,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func tableFor(kind content.Kind) (*kindTable, error) {
	t, ok := kindTables[kind]
	if !ok {
		return nil, errors.Errorf("unknown content kind %q", kind)
	}
	return t, nil
}

func scanItem(t *kindTable, kind content.Kind, row rowScanner) (*content.Item, error) {
	it := &content.Item{Kind: kind}
	dest := []any{&it.ID, &it.Title, &it.Body, &it.AuthorID, &it.Published, &it.PublishedAt, &it.CreatedAt, &it.UpdatedAt}
	extra, finish := t.extras(it)
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	finish()
	return it, nil
}

func (r *ContentRepo) where(t *kindTable, b sq.SelectBuilder, f content.Filter) (sq.SelectBuilder, error) {
	if f.Published != nil {
		b = b.Where(t.publishedPred(*f.Published))
	}
	if f.AuthorID != nil {
		b = b.Where(sq.Eq{"author_id": *f.AuthorID})
	}
	if f.Type != nil && *f.Type != "" {
		if t.typeCol == "" {
			return b, domain.Invalid("type", t.name+" cannot be filtered by type")
		}
		b = b.Where(sq.Eq{t.typeCol: *f.Type})
	}
	if f.StudentID != nil {
		if t.studentCol == "" {
			return b, domain.Invalid("student_id", t.name+" cannot be filtered by student")
		}
		b = b.Where(sq.Eq{t.studentCol: *f.StudentID})
	}
	return b, nil
}

// List returns the items matching every set filter field.
func (r *ContentRepo) List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error) {
	wrapMsg := "unable to list " + string(kind)

	t, err := tableFor(kind)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	limit, offset := f.Window()
	b, err := r.where(t, r.sb.Select(t.columns()...).From(t.name), f)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	statement, args, err := b.
		OrderBy(t.orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	items := make([]*content.Item, 0, limit)
	for rows.Next() {
		it, err := scanItem(t, kind, rows)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	return items, nil
}

func (r *ContentRepo) Get(ctx context.Context, kind content.Kind, id int64) (*content.Item, error) {
	wrapMsg := "unable to get " + string(kind)

	t, err := tableFor(kind)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	statement, args, err := r.sb.Select(t.columns()...).
		From(t.name).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	it, err := scanItem(t, kind, r.db.QueryRowContext(ctx, statement, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	return it, nil
}

// Create inserts it and refreshes it from the stored row.
func (r *ContentRepo) Create(ctx context.Context, it *content.Item) error {
	wrapMsg := "unable to save " + string(it.Kind)

	t, err := tableFor(it.Kind)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	statement, args, err := r.sb.Insert(t.name).
		SetMap(t.insert(it)).
		Suffix("RETURNING " + strings.Join(t.columns(), ", ")).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	stored, err := scanItem(t, it.Kind, r.db.QueryRowContext(ctx, statement, args...))
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return errors.Wrap(mapped, wrapMsg)
		}
		return errors.Wrap(err, wrapMsg)
	}
	*it = *stored
	return nil
}

func (r *ContentRepo) Update(ctx context.Context, kind content.Kind, id int64, p content.Patch) (*content.Item, error) {
	wrapMsg := "unable to update " + string(kind)

	t, err := tableFor(kind)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	set := t.patch(p)
	if len(set) == 0 {
		return nil, domain.Invalid("patch", "no field of the patch applies to "+t.name)
	}
	return r.updateReturning(ctx, t, kind, id, set, wrapMsg)
}

func (r *ContentRepo) Publish(ctx context.Context, kind content.Kind, id int64, at time.Time) (*content.Item, error) {
	wrapMsg := "unable to publish " + string(kind)

	t, err := tableFor(kind)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	return r.updateReturning(ctx, t, kind, id, t.publish(at), wrapMsg)
}

func (r *ContentRepo) updateReturning(ctx context.Context, t *kindTable, kind content.Kind, id int64, set map[string]any, wrapMsg string) (*content.Item, error) {
	statement, args, err := r.sb.Update(t.name).
		SetMap(set).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(t.columns(), ", ")).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	it, err := scanItem(t, kind, r.db.QueryRowContext(ctx, statement, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return nil, errors.Wrap(mapped, wrapMsg)
		}
		return nil, errors.Wrap(err, wrapMsg)
	}
	return it, nil
}

func (r *ContentRepo) Delete(ctx context.Context, kind content.Kind, id int64) error {
	wrapMsg := "unable to delete " + string(kind)

	t, err := tableFor(kind)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	statement, args, err := r.sb.Delete(t.name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	// Execute the delete statement and verify that a row was affected.
	result, err := r.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the exact number of rows matching f; the window is ignored.
func (r *ContentRepo) Count(ctx context.Context, kind content.Kind, f content.Filter) (int64, error) {
	wrapMsg := "unable to count " + string(kind)

	t, err := tableFor(kind)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	b, err := r.where(t, r.sb.Select("count(*)").From(t.name), f)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	statement, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, statement, args...).Scan(&total); err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}
	return total, nil
}

// DueEvents lists published events starting in [from, to) that have not
// been reminded yet, soonest first.
func (r *ContentRepo) DueEvents(ctx context.Context, from, to time.Time, limit int) ([]*content.Item, error) {
	wrapMsg := "unable to list due events"

	t := kindTables[content.KindEvent]
	if limit <= 0 {
		limit = content.DefaultLimit
	}
	statement, args, err := r.sb.Select(t.columns()...).
		From(t.name).
		Where(sq.Eq{"published": true}).
		Where(sq.Eq{"reminded_at": nil}).
		Where(sq.GtOrEq{"event_date": from}).
		Where(sq.Lt{"event_date": to}).
		OrderBy(t.orderBy...).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	var items []*content.Item
	for rows.Next() {
		it, err := scanItem(t, content.KindEvent, rows)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	return items, nil
}

func (r *ContentRepo) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	wrapMsg := "unable to mark event reminded"

	statement, args, err := r.sb.Update("events").
		Set("reminded_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
