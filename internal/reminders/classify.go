// Package reminders classifies tracked deadlines and manages a student's reminder list.
package reminders

import (
	"sort"
	"time"

	"github.com/david/scholar-match/internal/models"
)

type Class string

const (
	ClassUpcoming  Class = "upcoming"
	ClassOverdue   Class = "overdue"
	ClassCompleted Class = "completed"
)

// Classify derives a reminder's display state. Completed wins regardless of the due date;
// otherwise a due date strictly before now is overdue.
func Classify(r models.Reminder, now time.Time) Class {
	if r.Completed {
		return ClassCompleted
	}
	if r.DueDate.Before(now) {
		return ClassOverdue
	}
	return ClassUpcoming
}

// Partitioned is the reminder list as the dashboard shows it.
type Partitioned struct {
	Upcoming  []models.Reminder `json:"upcoming"`
	Overdue   []models.Reminder `json:"overdue"`
	Completed []models.Reminder `json:"completed"`
	Summary   Summary           `json:"summary"`
}

type Summary struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Overdue   int `json:"overdue"`
	Completed int `json:"completed"`
	// DueThisWeek counts open reminders due within seven days of now, overdue excluded.
	DueThisWeek int `json:"due_this_week"`
	// HighPriority counts open high-priority reminders.
	HighPriority int `json:"high_priority"`
}

// Partition splits reminders by Classify. Upcoming and overdue are ordered by due date
// ascending. Completed items are ordered by completion time; those without one follow in
// input order.
func Partition(items []models.Reminder, now time.Time) Partitioned {
	p := Partitioned{
		Upcoming:  []models.Reminder{},
		Overdue:   []models.Reminder{},
		Completed: []models.Reminder{},
	}
	for _, r := range items {
		switch Classify(r, now) {
		case ClassCompleted:
			p.Completed = append(p.Completed, r)
		case ClassOverdue:
			p.Overdue = append(p.Overdue, r)
		default:
			p.Upcoming = append(p.Upcoming, r)
		}
	}

	byDue := func(list []models.Reminder) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].DueDate.Before(list[j].DueDate)
		})
	}
	byDue(p.Upcoming)
	byDue(p.Overdue)
	sort.SliceStable(p.Completed, func(i, j int) bool {
		a, b := p.Completed[i].CompletedAt, p.Completed[j].CompletedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})

	p.Summary = Summarize(items, now)
	return p
}

// Summarize counts reminders per class for the dashboard header.
func Summarize(items []models.Reminder, now time.Time) Summary {
	s := Summary{Total: len(items)}
	weekAhead := now.Add(7 * 24 * time.Hour)
	for _, r := range items {
		switch Classify(r, now) {
		case ClassCompleted:
			s.Completed++
			continue
		case ClassOverdue:
			s.Overdue++
		default:
			s.Upcoming++
			if !r.DueDate.After(weekAhead) {
				s.DueThisWeek++
			}
		}
		if r.Priority == models.PriorityHigh {
			s.HighPriority++
		}
	}
	return s
}
