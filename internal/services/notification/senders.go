package notification

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/content"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/transport/email"
	"github.com/NordCoder/EduPortal/internal/transport/sms"
)

// address returns p's address on ch, or "" when it is missing or malformed.
func address(p *profile.Profile, ch domainnotif.Channel) string {
	if ch == domainnotif.ChannelEmail {
		if a := strings.TrimSpace(p.Email); email.ValidAddress(a) {
			return a
		}
		return ""
	}
	if a := strings.TrimSpace(p.Phone); sms.ValidPhone(a) {
		return a
	}
	return ""
}

func other(ch domainnotif.Channel) domainnotif.Channel {
	if ch == domainnotif.ChannelEmail {
		return domainnotif.ChannelSMS
	}
	return domainnotif.ChannelEmail
}

// Route picks the channel for p: the preferred one when p has a valid
// address for it, else the other one. ok is false when p has neither.
func (s *Service) Route(p *profile.Profile) (ch domainnotif.Channel, addr string, ok bool) {
	if p == nil {
		return "", "", false
	}
	for _, c := range []domainnotif.Channel{s.preferred, other(s.preferred)} {
		if a := address(p, c); a != "" {
			return c, a, true
		}
	}
	return "", "", false
}

// Messages renders one message per reachable recipient. Unreachable
// recipients are skipped.
func (s *Service) Messages(recipients []*profile.Profile, title, body string, data map[string]any) []domainnotif.Message {
	out := make([]domainnotif.Message, 0, len(recipients))
	for _, p := range recipients {
		ch, addr, ok := s.Route(p)
		if !ok {
			if p != nil {
				s.log.Debug("recipient unreachable", zap.Int64("recipient_id", p.ID))
			}
			continue
		}
		out = append(out, domainnotif.Message{
			RecipientID: p.ID,
			Channel:     ch,
			Address:     addr,
			Title:       title,
			Body:        body,
			Data:        data,
		})
	}
	return out
}

func (s *Service) sendOne(ctx context.Context, p *profile.Profile, title, body string, data map[string]any) bool {
	msgs := s.Messages([]*profile.Profile{p}, title, body, data)
	if len(msgs) == 0 {
		return false
	}
	return s.Send(ctx, msgs[0])
}

func (s *Service) SendExamResult(ctx context.Context, student *profile.Profile, exam *content.Item) bool {
	if student == nil || exam == nil || exam.Exam == nil {
		return false
	}
	grade := exam.Exam.Grade
	if grade == "" {
		grade = content.GradeFor(exam.Exam.Marks, exam.Exam.MaxMarks)
	}
	return s.sendOne(ctx, student, "Exam result: "+exam.Title,
		ExamResult(student.FullName, exam.Title, grade),
		map[string]any{"kind": string(content.KindExamResult), "content_id": exam.ID, "grade": grade,
			"percentage": exam.Exam.Percentage()},
	)
}

func (s *Service) SendAnnouncement(ctx context.Context, recipients []*profile.Profile, a *content.Item) domainnotif.BulkResult {
	msgs := s.Messages(recipients, a.Title, Announcement(a.Title, a.Body),
		map[string]any{"kind": string(content.KindAnnouncement), "content_id": a.ID, "type": string(a.Type)})
	return s.SendBulk(ctx, msgs)
}

func (s *Service) SendUrgentAlert(ctx context.Context, recipients []*profile.Profile, a *content.Item) domainnotif.BulkResult {
	message := a.Title
	if body := strings.TrimSpace(a.Body); body != "" {
		message += " - " + body
	}
	msgs := s.Messages(recipients, "Urgent: "+a.Title, UrgentAlert(message),
		map[string]any{"kind": string(content.KindAnnouncement), "content_id": a.ID, "type": string(content.AnnouncementUrgent)})
	return s.SendBulk(ctx, msgs)
}

func (s *Service) SendEventReminder(ctx context.Context, recipients []*profile.Profile, ev *content.Item) domainnotif.BulkResult {
	if ev == nil || ev.EventDate == nil {
		return domainnotif.BulkResult{}
	}
	msgs := s.Messages(recipients, "Reminder: "+ev.Title, EventReminder(ev.Title, *ev.EventDate, ev.Location),
		map[string]any{"kind": string(content.KindEvent), "content_id": ev.ID})
	return s.SendBulk(ctx, msgs)
}

func (s *Service) SendWelcome(ctx context.Context, p *profile.Profile) bool {
	if p == nil {
		return false
	}
	return s.sendOne(ctx, p, "Welcome to EduPortal", Welcome(p.FullName, p.Role),
		map[string]any{"kind": "welcome"})
}
