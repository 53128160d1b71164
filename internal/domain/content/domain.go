package content

import (
	"slices"
	"strings"
	"time"
)

type Kind string

const (
	KindNews         Kind = "news"
	KindAnnouncement Kind = "announcement"
	KindEvent        Kind = "event"
	KindExamResult   Kind = "exam_result"
)

var Kinds = []Kind{KindNews, KindAnnouncement, KindEvent, KindExamResult}

func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Kinds, k) {
		return k, true
	}
	switch k {
	case "announcements":
		return KindAnnouncement, true
	case "events":
		return KindEvent, true
	case "exam_results", "exam-results":
		return KindExamResult, true
	}
	return "", false
}

// Collection is the table name change events for k are published under.
func (k Kind) Collection() string {
	switch k {
	case KindAnnouncement:
		return "announcements"
	case KindEvent:
		return "events"
	case KindExamResult:
		return "exam_results"
	}
	return string(k)
}

type AnnouncementType string

const (
	AnnouncementGeneral AnnouncementType = "general"
	AnnouncementUrgent  AnnouncementType = "urgent"
	AnnouncementEvent   AnnouncementType = "event"
	AnnouncementExam    AnnouncementType = "exam"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPending   ExamStatus = "pending"
	ExamPublished ExamStatus = "published"
)

// Item is a piece of portal content. Kind-specific fields are only
// meaningful for their kind; exam results keep theirs under Exam.
type Item struct {
	ID          int64      `json:"id"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Body        string     `json:"body,omitempty" validate:"max=10000"`
	AuthorID    int64      `json:"author_id"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Category string `json:"category,omitempty" validate:"max=60"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url,max=500"`

	Type     AnnouncementType `json:"type,omitempty" validate:"omitempty,oneof=general urgent event exam"`
	Priority string           `json:"priority,omitempty" validate:"omitempty,oneof=low normal high"`

	EventDate  *time.Time `json:"event_date,omitempty" validate:"required_if=Kind event"`
	Location   string     `json:"location,omitempty" validate:"max=200"`
	RemindedAt *time.Time `json:"reminded_at,omitempty"`

	Exam *ExamResult `json:"exam,omitempty" validate:"required_if=Kind exam_result"`
}

type ExamResult struct {
	StudentID int64      `json:"student_id" validate:"required,gt=0"`
	Subject   string     `json:"subject" validate:"required,notblank,max=120"`
	Marks     float64    `json:"marks" validate:"gte=0,ltefield=MaxMarks"`
	MaxMarks  float64    `json:"max_marks" validate:"gt=0"`
	Grade     string     `json:"grade,omitempty" validate:"max=3"`
	Status    ExamStatus `json:"status,omitempty" validate:"omitempty,oneof=draft pending published"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Title     *string           `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Body      *string           `json:"body,omitempty" validate:"omitempty,max=10000"`
	Category  *string           `json:"category,omitempty" validate:"omitempty,max=60"`
	ImageURL  *string           `json:"image_url,omitempty" validate:"omitempty,url,max=500"`
	Type      *AnnouncementType `json:"type,omitempty" validate:"omitempty,oneof=general urgent event exam"`
	Priority  *string           `json:"priority,omitempty" validate:"omitempty,oneof=low normal high"`
	EventDate *time.Time        `json:"event_date,omitempty"`
	Location  *string           `json:"location,omitempty" validate:"omitempty,max=200"`
	Subject   *string           `json:"subject,omitempty" validate:"omitempty,notblank,max=120"`
	Marks     *float64          `json:"marks,omitempty" validate:"omitempty,gte=0"`
	MaxMarks  *float64          `json:"max_marks,omitempty" validate:"omitempty,gt=0"`
	Grade     *string           `json:"grade,omitempty" validate:"omitempty,max=3"`
	Status    *ExamStatus       `json:"status,omitempty" validate:"omitempty,oneof=draft pending published"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Body == nil && p.Category == nil && p.ImageURL == nil &&
		p.Type == nil && p.Priority == nil && p.EventDate == nil && p.Location == nil &&
		p.Subject == nil && p.Marks == nil && p.MaxMarks == nil && p.Grade == nil && p.Status == nil
}

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Filter fields combine with AND; nil fields do not constrain.
type Filter struct {
	Published *bool
	AuthorID  *int64
	Type      *string
	StudentID *int64
	Limit     int
	Offset    int
}

func (f Filter) Window() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type Stats struct {
	TotalNews              int64 `json:"total_news"`
	PublishedNews          int64 `json:"published_news"`
	TotalAnnouncements     int64 `json:"total_announcements"`
	PublishedAnnouncements int64 `json:"published_announcements"`
	TotalEvents            int64 `json:"total_events"`
	PublishedEvents        int64 `json:"published_events"`
	TotalExamResults       int64 `json:"total_exam_results"`
	PublishedExamResults   int64 `json:"published_exam_results"`
}
