package content

import (
	"context"

	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/content"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/obs"
)

// announce notifies every student and teacher. Urgent announcements use the
// urgent alert wording.
func (s *Service) announce(ctx context.Context, it *content.Item) {
	log := obs.WithTrace(ctx, s.log).With(zap.Int64("announcement_id", it.ID))

	recipients, err := s.profiles.ListByRoles(ctx, profile.RoleStudent, profile.RoleTeacher)
	if err != nil {
		log.Error("announcement fan-out: list recipients failed", zap.Error(err))
		return
	}

	send := s.notifier.SendAnnouncement
	if it.Type == content.AnnouncementUrgent {
		send = s.notifier.SendUrgentAlert
	}
	res := send(ctx, recipients, it)
	log.Info("announcement fan-out done",
		zap.String("type", string(it.Type)),
		zap.Int("recipients", len(recipients)),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
	)
}

func (s *Service) notifyStudent(ctx context.Context, it *content.Item) {
	if it.Exam == nil {
		return
	}
	log := obs.WithTrace(ctx, s.log).With(zap.Int64("exam_result_id", it.ID), zap.Int64("student_id", it.Exam.StudentID))

	student, err := s.profiles.GetByID(ctx, it.Exam.StudentID)
	if err != nil {
		log.Error("exam result notification: student lookup failed", zap.Error(err))
		return
	}
	if !s.notifier.SendExamResult(ctx, student, it) {
		log.Warn("exam result notification not delivered")
	}
}
