package postgres

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/NordCoder/EduPortal/internal/domain/content"
)

// kindTable describes how one content kind is stored. Every per-kind
// difference lives here so the repository never switches on table names.
type kindTable struct {
	name         string
	titleCol     string
	bodyCol      string
	publishedCol string
	extraCols    []string
	orderBy      []string
	typeCol      string
	studentCol   string

	publishedPred func(bool) sq.Sqlizer
	extras        func(it *content.Item) (dest []any, finish func())
	insert        func(it *content.Item) map[string]any
	patch         func(p content.Patch) map[string]any
	publish       func(at time.Time) map[string]any
}

func (t *kindTable) columns() []string {
	cols := []string{
		"id",
		t.titleCol,
		"COALESCE(" + t.bodyCol + ", '')",
		"author_id",
		t.publishedCol,
		"published_at",
		"created_at",
		"updated_at",
	}
	return append(cols, t.extraCols...)
}

var kindTables = map[content.Kind]*kindTable{
	content.KindNews: {
		name:          "news",
		titleCol:      "title",
		bodyCol:       "content",
		publishedCol:  "published",
		extraCols:     []string{"COALESCE(category, '')", "COALESCE(image_url, '')"},
		orderBy:       []string{"created_at DESC", "id DESC"},
		typeCol:       "category",
		publishedPred: publishedFlag,
		extras: func(it *content.Item) ([]any, func()) {
			return []any{&it.Category, &it.ImageURL}, func() {}
		},
		insert: func(it *content.Item) map[string]any {
			return map[string]any{
				"title":     it.Title,
				"content":   it.Body,
				"category":  nullString(it.Category),
				"image_url": nullString(it.ImageURL),
				"author_id": it.AuthorID,
				"published": false,
			}
		},
		patch: func(p content.Patch) map[string]any {
			m := map[string]any{}
			setIf(m, "title", p.Title)
			setIf(m, "content", p.Body)
			setIf(m, "category", p.Category)
			setIf(m, "image_url", p.ImageURL)
			return m
		},
		publish: publishFlag,
	},
	content.KindAnnouncement: {
		name:          "announcements",
		titleCol:      "title",
		bodyCol:       "content",
		publishedCol:  "published",
		extraCols:     []string{"type", "COALESCE(priority, 'normal')"},
		orderBy:       []string{"created_at DESC", "id DESC"},
		typeCol:       "type",
		publishedPred: publishedFlag,
		extras: func(it *content.Item) ([]any, func()) {
			var typ string
			return []any{&typ, &it.Priority}, func() { it.Type = content.AnnouncementType(typ) }
		},
		insert: func(it *content.Item) map[string]any {
			typ := it.Type
			if typ == "" {
				typ = content.AnnouncementGeneral
			}
			priority := it.Priority
			if priority == "" {
				priority = "normal"
			}
			return map[string]any{
				"title":     it.Title,
				"content":   it.Body,
				"type":      string(typ),
				"priority":  priority,
				"author_id": it.AuthorID,
				"published": false,
			}
		},
		patch: func(p content.Patch) map[string]any {
			m := map[string]any{}
			setIf(m, "title", p.Title)
			setIf(m, "content", p.Body)
			if p.Type != nil {
				m["type"] = string(*p.Type)
			}
			setIf(m, "priority", p.Priority)
			return m
		},
		publish: publishFlag,
	},
	content.KindEvent: {
		name:          "events",
		titleCol:      "title",
		bodyCol:       "description",
		publishedCol:  "published",
		extraCols:     []string{"event_date", "COALESCE(location, '')", "reminded_at"},
		orderBy:       []string{"event_date ASC", "id ASC"},
		publishedPred: publishedFlag,
		extras: func(it *content.Item) ([]any, func()) {
			return []any{&it.EventDate, &it.Location, &it.RemindedAt}, func() {}
		},
		insert: func(it *content.Item) map[string]any {
			return map[string]any{
				"title":       it.Title,
				"description": it.Body,
				"event_date":  it.EventDate,
				"location":    nullString(it.Location),
				"author_id":   it.AuthorID,
				"published":   false,
			}
		},
		patch: func(p content.Patch) map[string]any {
			m := map[string]any{}
			setIf(m, "title", p.Title)
			setIf(m, "description", p.Body)
			setIf(m, "location", p.Location)
			if p.EventDate != nil {
				m["event_date"] = *p.EventDate
				// a moved event gets a fresh reminder
				m["reminded_at"] = nil
			}
			return m
		},
		publish: publishFlag,
	},
	content.KindExamResult: {
		name:         "exam_results",
		titleCol:     "exam_name",
		bodyCol:      "remarks",
		publishedCol: "status = 'published'",
		extraCols:    []string{"student_id", "subject", "marks", "max_marks", "COALESCE(grade, '')", "status"},
		orderBy:      []string{"created_at DESC", "id DESC"},
		typeCol:      "subject",
		studentCol:   "student_id",
		publishedPred: func(published bool) sq.Sqlizer {
			if published {
				return sq.Eq{"status": string(content.ExamPublished)}
			}
			return sq.NotEq{"status": string(content.ExamPublished)}
		},
		extras: func(it *content.Item) ([]any, func()) {
			ex := &content.ExamResult{}
			var status string
			return []any{&ex.StudentID, &ex.Subject, &ex.Marks, &ex.MaxMarks, &ex.Grade, &status}, func() {
				ex.Status = content.ExamStatus(status)
				it.Exam = ex
			}
		},
		insert: func(it *content.Item) map[string]any {
			ex := it.Exam
			status := ex.Status
			if status == "" || status == content.ExamPublished {
				status = content.ExamDraft
			}
			return map[string]any{
				"exam_name":  it.Title,
				"remarks":    nullString(it.Body),
				"student_id": ex.StudentID,
				"subject":    ex.Subject,
				"marks":      ex.Marks,
				"max_marks":  ex.MaxMarks,
				"grade":      nullString(ex.Grade),
				"status":     string(status),
				"author_id":  it.AuthorID,
			}
		},
		patch: func(p content.Patch) map[string]any {
			m := map[string]any{}
			setIf(m, "exam_name", p.Title)
			setIf(m, "remarks", p.Body)
			setIf(m, "subject", p.Subject)
			setIf(m, "marks", p.Marks)
			setIf(m, "max_marks", p.MaxMarks)
			setIf(m, "grade", p.Grade)
			if p.Status != nil {
				m["status"] = string(*p.Status)
			}
			return m
		},
		publish: func(at time.Time) map[string]any {
			return map[string]any{
				"status":       string(content.ExamPublished),
				"published_at": at,
			}
		},
	},
}

func publishedFlag(published bool) sq.Sqlizer {
	return sq.Eq{"published": published}
}

func publishFlag(at time.Time) map[string]any {
	return map[string]any{
		"published":    true,
		"published_at": at,
	}
}

func setIf[T any](m map[string]any, col string, v *T) {
	if v != nil {
		m[col] = *v
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
