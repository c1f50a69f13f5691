package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/models"
	"github.com/david/scholar-match/internal/tracker"
)

type createApplicationRequest struct {
	ScholarshipID string  `json:"scholarship_id" validate:"required"`
	Notes         *string `json:"notes"`
}

type updateStatusRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required"`
	Notes  *string                  `json:"notes"`
}

type applicationsResponse struct {
	Applications []models.Application             `json:"applications"`
	Counts       map[models.ApplicationStatus]int `json:"counts"`
}

func (s *Server) handleCreateApplication(c echo.Context) error {
	ctx := c.Request().Context()
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}

	var req createApplicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	sch, err := s.catalog.GetScholarship(ctx, req.ScholarshipID)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Scholarship not found"})
	}
	if err != nil {
		s.logger.Error("get scholarship failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	app, err := s.tracker.CreateApplication(ctx, sid, req.ScholarshipID, req.Notes)
	if err != nil {
		var dup *tracker.DuplicateError
		if errors.As(err, &dup) {
			return c.JSON(http.StatusConflict, map[string]string{
				"error":          "You have already applied to this scholarship",
				"application_id": dup.Existing.ID.String(),
			})
		}
		s.logger.Error("create application failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create application"})
	}
	if app.Scholarship == nil {
		summary := sch.Summary()
		app.Scholarship = &summary
	}

	return c.JSON(http.StatusCreated, app)
}

func (s *Server) handleListApplications(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}
	apps, err := s.tracker.ListApplications(c.Request().Context(), sid)
	if err != nil {
		s.logger.Error("list applications failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch applications"})
	}
	return c.JSON(http.StatusOK, applicationsResponse{Applications: apps, Counts: tracker.StatusCounts(apps)})
}

func (s *Server) handleGetApplication(c echo.Context) error {
	app, err := s.ownedApplication(c)
	if err != nil || app == nil {
		return err
	}
	return c.JSON(http.StatusOK, app)
}

func (s *Server) handleUpdateApplicationStatus(c echo.Context) error {
	app, err := s.ownedApplication(c)
	if err != nil || app == nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	updated, err := s.tracker.UpdateApplication(c.Request().Context(), app.ID, req.Status, req.Notes)
	switch {
	case errors.Is(err, tracker.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, tracker.ErrUnknownApplication):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Application not found"})
	case err != nil:
		s.logger.Error("update application failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update application"})
	}
	return c.JSON(http.StatusOK, updated)
}

// ownedApplication resolves :id to an application owned by the caller. When it returns
// a nil application the response has already been written.
func (s *Server) ownedApplication(c echo.Context) (*models.Application, error) {
	sid, ok := studentID(c)
	if !ok {
		return nil, unauthorized(c)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid application ID"})
	}

	app, err := s.tracker.GetApplication(c.Request().Context(), id)
	if errors.Is(err, tracker.ErrUnknownApplication) || (err == nil && app.StudentID != sid) {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "Application not found"})
	}
	if err != nil {
		s.logger.Error("get application failed", zap.Error(err))
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return &app, nil
}
