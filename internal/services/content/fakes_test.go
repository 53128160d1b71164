package content

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NordCoder/EduPortal/internal/domain"
	"github.com/NordCoder/EduPortal/internal/domain/content"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
)

type memContent struct {
	mu       sync.Mutex
	items    map[int64]*content.Item
	nextID   int64
	countErr map[content.Kind]error
	listErr  error
}

func newMemContent() *memContent {
	return &memContent{items: map[int64]*content.Item{}, countErr: map[content.Kind]error{}}
}

func (m *memContent) List(_ context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*content.Item
	for _, it := range m.items {
		if it.Kind == kind && (f.Published == nil || it.Published == *f.Published) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memContent) Get(_ context.Context, kind content.Kind, id int64) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.Kind != kind {
		return nil, domain.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memContent) Create(_ context.Context, it *content.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	it.ID = m.nextID
	it.CreatedAt = time.Now()
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memContent) Update(_ context.Context, kind content.Kind, id int64, p content.Patch) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.Kind != kind {
		return nil, domain.ErrNotFound
	}
	if p.Title != nil {
		it.Title = *p.Title
	}
	if it.Exam != nil {
		if p.Marks != nil {
			it.Exam.Marks = *p.Marks
		}
		if p.MaxMarks != nil {
			it.Exam.MaxMarks = *p.MaxMarks
		}
		if p.Grade != nil {
			it.Exam.Grade = *p.Grade
		}
	}
	cp := *it
	return &cp, nil
}

func (m *memContent) Delete(_ context.Context, kind content.Kind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.Kind != kind {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memContent) Publish(_ context.Context, kind content.Kind, id int64, at time.Time) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.Kind != kind {
		return nil, domain.ErrNotFound
	}
	it.Published = true
	it.PublishedAt = &at
	if it.Exam != nil {
		it.Exam.Status = content.ExamPublished
	}
	cp := *it
	return &cp, nil
}

func (m *memContent) Count(_ context.Context, kind content.Kind, f content.Filter) (int64, error) {
	if err := m.countErr[kind]; err != nil {
		return 0, err
	}
	items, _ := m.List(context.Background(), kind, f)
	return int64(len(items)), nil
}

func (m *memContent) DueEvents(context.Context, time.Time, time.Time, int) ([]*content.Item, error) {
	return nil, nil
}

func (m *memContent) MarkReminded(context.Context, int64, time.Time) error { return nil }

type memProfiles struct {
	all     []*profile.Profile
	listErr error
}

func (m *memProfiles) Create(_ context.Context, p *profile.Profile) error {
	p.ID = int64(len(m.all) + 1)
	m.all = append(m.all, p)
	return nil
}

func (m *memProfiles) GetByID(_ context.Context, id int64) (*profile.Profile, error) {
	for _, p := range m.all {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memProfiles) GetByEmail(context.Context, string) (*profile.Profile, error) {
	return nil, domain.ErrNotFound
}

func (m *memProfiles) ListByRoles(_ context.Context, roles ...profile.Role) ([]*profile.Profile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*profile.Profile
	for _, p := range m.all {
		for _, r := range roles {
			if p.Role == r {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type fixedIdentity struct {
	id int64
}

func (f fixedIdentity) Current(context.Context) (int64, bool) { return f.id, f.id > 0 }

type recordingEvents struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
	err    error
}

func (r *recordingEvents) PublishChange(_ context.Context, ev realtime.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

var errDB = errors.New("connection reset")
