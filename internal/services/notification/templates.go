package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/EduPortal/internal/domain/profile"
)

// SMSBudget is the longest body any template produces, in characters.
const SMSBudget = 160

const ellipsis = "..."

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= SMSBudget {
		return s
	}
	return string(r[:SMSBudget-len(ellipsis)]) + ellipsis
}

func ExamResult(student, exam, grade string) string {
	return truncate(fmt.Sprintf("Dear %s, your result for %s is out. Grade: %s. Log in to EduPortal for details.", student, exam, grade))
}

func Announcement(title, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return truncate("EduPortal: " + title)
	}
	return truncate(fmt.Sprintf("EduPortal: %s - %s", title, body))
}

func EventReminder(title string, when time.Time, location string) string {
	msg := fmt.Sprintf("Reminder: %s on %s", title, when.Format("Mon 02 Jan 15:04"))
	if location = strings.TrimSpace(location); location != "" {
		msg += " at " + location
	}
	return truncate(msg + ".")
}

func UrgentAlert(message string) string {
	return truncate("URGENT: " + strings.TrimSpace(message))
}

func Welcome(name string, role profile.Role) string {
	return truncate(fmt.Sprintf("Welcome to EduPortal, %s! Your %s account is ready.", name, role))
}
