package schema

import (
	"regexp"
	"strconv"
	"strings"
)

var datePattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

// CanonicalDate zero-pads the month and day parts of a partial date:
// "2020-3-5" becomes "2020-03-05". Other input is returned trimmed.
func CanonicalDate(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) > 3 {
		return s
	}
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) == 1 {
			parts[i] = "0" + parts[i]
		}
	}
	return strings.Join(parts, "-")
}

// ValidDate accepts "YYYY", "YYYY-MM" and "YYYY-MM-DD" with sane month and
// day numbers.
func ValidDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	parts := strings.Split(s, "-")
	if len(parts) > 1 {
		if m, _ := strconv.Atoi(parts[1]); m < 1 || m > 12 {
			return false
		}
	}
	if len(parts) > 2 {
		if d, _ := strconv.Atoi(parts[2]); d < 1 || d > 31 {
			return false
		}
	}
	return true
}
