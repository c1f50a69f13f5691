package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/reminders"
)

type toggleReminderRequest struct {
	Completed bool `json:"completed"`
}

func (s *Server) handleCreateReminder(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}

	var req reminders.CreateInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	r, err := s.reminders.Create(c.Request().Context(), sid, req)
	if errors.Is(err, reminders.ErrInvalidPriority) || errors.Is(err, reminders.ErrTitleRequired) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		s.logger.Error("create reminder failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create reminder"})
	}
	return c.JSON(http.StatusCreated, r)
}

func (s *Server) handleListReminders(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := s.reminders.List(c.Request().Context(), sid)
	if err != nil {
		s.logger.Error("list reminders failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch reminders"})
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleToggleReminder(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid reminder ID"})
	}
	var req toggleReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	r, err := s.reminders.ToggleComplete(c.Request().Context(), sid, id, req.Completed)
	if errors.Is(err, reminders.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Reminder not found"})
	}
	if err != nil {
		s.logger.Error("update reminder failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update reminder"})
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleDeleteReminder(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid reminder ID"})
	}

	err = s.reminders.Delete(c.Request().Context(), sid, id)
	if errors.Is(err, reminders.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Reminder not found"})
	}
	if err != nil {
		s.logger.Error("delete reminder failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete reminder"})
	}
	return c.NoContent(http.StatusNoContent)
}
