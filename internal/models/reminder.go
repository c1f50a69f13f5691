package models

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Reminder struct {
	ID            uuid.UUID  `json:"id"`
	StudentID     uuid.UUID  `json:"student_id"`
	ScholarshipID *string    `json:"scholarship_id,omitempty"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Category      string     `json:"category"`
	DueDate       time.Time  `json:"due_date"`
	Priority      Priority   `json:"priority"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SavedScholarship struct {
	StudentID     uuid.UUID          `json:"student_id"`
	ScholarshipID string             `json:"scholarship_id"`
	SavedAt       time.Time          `json:"saved_at"`
	Scholarship   ScholarshipSummary `json:"scholarship"`
}
