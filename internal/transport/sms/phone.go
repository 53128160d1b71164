package sms

import "strings"

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone reports whether s carries at least ten digits.
func ValidPhone(s string) bool {
	return len(digits(s)) >= 10
}

// FormatPhone normalises s to an E.164-like form. Ten bare digits are
// treated as a North American number.
func FormatPhone(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		return s
	}
	d := digits(s)
	if len(d) == 10 {
		return "+1" + d
	}
	return "+" + d
}
