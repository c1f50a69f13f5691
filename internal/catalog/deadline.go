package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var deadlinePrefixes = []string{
	"closing date:", "deadline:", "due date:", "apply by:", "expires:", "ends:",
}

// date-only layouts; parsed values are moved to the end of that day
var dateLayouts = []string{
	"2006-01-02",
	"2 January 2006",
	"02 January 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"01/02/2006",
	"1/2/2006",
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 3 PM",
	"2 January 2006 3:04 PM",
}

var (
	isoInText   = regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}\b`)
	monthInText = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+(\d{1,2}),?\s+(20\d{2})\b`)
	dayInText   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(20\d{2})\b`)
)

// ParseDeadline turns a human written deadline ("Deadline: March 31, 2027",
// "2027-03-31", "31 March 2027 5 PM") into a UTC instant. Date-only values
// resolve to the last nanosecond of that day so a scholarship stays open
// through its closing date. Empty input returns nil.
func ParseDeadline(text string) (*time.Time, error) {
	text = cleanDeadline(text)
	if text == "" {
		return nil, nil
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			t = endOfDay(t)
			return &t, nil
		}
	}
	if t, ok := deadlineInText(text); ok {
		return &t, nil
	}
	return nil, fmt.Errorf("unable to parse deadline %q", text)
}

func deadlineInText(text string) (time.Time, bool) {
	if m := isoInText.FindString(text); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return endOfDay(t), true
		}
	}
	if m := monthInText.FindStringSubmatch(text); len(m) == 4 {
		month := strings.ToLower(m[1])
		if len(month) > 3 {
			month = month[:3]
		}
		if t, err := time.Parse("Jan 2 2006", fmt.Sprintf("%s %s %s", titleCase(month), m[2], m[3])); err == nil {
			return endOfDay(t), true
		}
	}
	if m := dayInText.FindStringSubmatch(text); len(m) == 4 {
		if t, err := time.Parse("2 January 2006", fmt.Sprintf("%s %s %s", m[1], titleCase(m[2]), m[3])); err == nil {
			return endOfDay(t), true
		}
	}
	return time.Time{}, false
}

func cleanDeadline(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range deadlinePrefixes {
		if strings.HasPrefix(lower, p) {
			s = strings.TrimSpace(s[len(p):])
			lower = strings.ToLower(s)
		}
	}
	r := strings.NewReplacer("a.m.", "AM", "p.m.", "PM", " am", " AM", " pm", " PM")
	return r.Replace(s)
}

func titleCase(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}
