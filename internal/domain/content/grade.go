package content

import "math"

var gradeTable = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C"},
	{40, "D"},
}

// GradeFor maps marks out of max onto the letter grade table.
func GradeFor(marks, max float64) string {
	if max <= 0 {
		return "F"
	}
	pct := (&ExamResult{Marks: marks, MaxMarks: max}).Percentage()
	for _, g := range gradeTable {
		if pct >= g.min {
			return g.grade
		}
	}
	return "F"
}

// Percentage is marks as a share of max, rounded to two decimals.
func (e *ExamResult) Percentage() float64 {
	if e == nil || e.MaxMarks <= 0 {
		return 0
	}
	return math.Round(e.Marks/e.MaxMarks*10000) / 100
}

// EnsureGrade fills an empty grade from the marks.
func (e *ExamResult) EnsureGrade() {
	if e != nil && e.Grade == "" {
		e.Grade = GradeFor(e.Marks, e.MaxMarks)
	}
}
