package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeFor(t *testing.T) {
	cases := []struct {
		marks, max float64
		want       string
	}{
		{95, 100, "A+"},
		{89.996, 100, "A+"},
		{72, 100, "B+"},
		{40, 100, "D"},
		{39, 100, "F"},
		{10, 0, "F"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GradeFor(c.marks, c.max), "%v/%v", c.marks, c.max)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 72.0, (&ExamResult{Marks: 72, MaxMarks: 100}).Percentage())
	assert.Equal(t, 66.67, (&ExamResult{Marks: 2, MaxMarks: 3}).Percentage())
	assert.Zero(t, (&ExamResult{Marks: 5}).Percentage())
	assert.Zero(t, (*ExamResult)(nil).Percentage())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, ok := ParseKind(string(k))
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	for in, want := range map[string]Kind{
		" News ":        KindNews,
		"announcements": KindAnnouncement,
		"events":        KindEvent,
		"exam-results":  KindExamResult,
		"exam_results":  KindExamResult,
	} {
		got, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseKind("grades")
	assert.False(t, ok)
}
