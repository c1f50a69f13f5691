package models

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	StatusApplied     ApplicationStatus = "applied"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusAccepted    ApplicationStatus = "accepted"
	StatusRejected    ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusUnderReview, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

type Application struct {
	ID            uuid.UUID           `json:"id"`
	StudentID     uuid.UUID           `json:"student_id"`
	ScholarshipID string              `json:"scholarship_id"`
	Status        ApplicationStatus   `json:"status"`
	Notes         *string             `json:"notes"`
	AppliedAt     time.Time           `json:"applied_date"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Scholarship   *ScholarshipSummary `json:"scholarships,omitempty"`
}
