package tracker

import (
	"errors"
	"fmt"

	"github.com/david/scholar-match/internal/models"
)

var (
	ErrDuplicateApplication = errors.New("application already exists for this scholarship")
	ErrUnknownApplication   = errors.New("application not found")
	ErrInvalidStatus        = errors.New("invalid application status")
)

// DuplicateError reports a create attempt for a (student, scholarship) pair that already
// has an application. It matches ErrDuplicateApplication with errors.Is.
type DuplicateError struct {
	Existing models.Application
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s (application %s)", ErrDuplicateApplication, e.Existing.ID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateApplication
}
