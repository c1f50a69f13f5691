package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/models"
)

func (s *Server) handleListScholarships(c echo.Context) error {
	limit := 20
	offset := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}
	var deadlineDays int
	if v, err := strconv.Atoi(c.QueryParam("deadline_days")); err == nil && v > 0 {
		deadlineDays = v
	}

	result, err := s.catalog.ListScholarships(c.Request().Context(), db.ListParams{
		Query:          c.QueryParam("q"),
		Country:        splitCSV(c.QueryParam("country")),
		EducationLevel: splitCSV(c.QueryParam("education_level")),
		FieldOfStudy:   splitCSV(c.QueryParam("field_of_study")),
		DeadlineDays:   deadlineDays,
		ExcludeExpired: c.QueryParam("include_expired") != "true",
		SortBy:         c.QueryParam("sort"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		s.logger.Error("list scholarships failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetScholarship(c echo.Context) error {
	sch, err := s.catalog.GetScholarship(c.Request().Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if err != nil {
		s.logger.Error("get scholarship failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, sch)
}

// handleUpsertScholarships loads catalog records. Match sets already cached are not
// invalidated; they refresh when the profile changes or on an explicit refresh.
func (s *Server) handleUpsertScholarships(c echo.Context) error {
	var records []models.Scholarship
	if err := c.Bind(&records); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	upserted := 0
	for _, rec := range records {
		if strings.TrimSpace(rec.ID) == "" || strings.TrimSpace(rec.Name) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Each scholarship needs an id and a name"})
		}
		if err := s.catalog.UpsertScholarship(c.Request().Context(), rec); err != nil {
			s.logger.Error("upsert scholarship failed", zap.String("scholarship_id", rec.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to upsert scholarships", "upserted": upserted})
		}
		upserted++
	}
	return c.JSON(http.StatusOK, map[string]int{"upserted": upserted})
}

func (s *Server) handleSaveScholarship(c echo.Context) error {
	ctx := c.Request().Context()
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}

	id := c.Param("id")
	if _, err := s.catalog.GetScholarship(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Scholarship not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	if err := s.saved.Save(ctx, sid, id); err != nil {
		s.logger.Error("save scholarship failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save scholarship"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleUnsaveScholarship(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := s.saved.Unsave(c.Request().Context(), sid, c.Param("id")); err != nil {
		s.logger.Error("unsave scholarship failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to unsave scholarship"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "unsaved"})
}

func (s *Server) handleListSaved(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := s.saved.List(c.Request().Context(), sid)
	if err != nil {
		s.logger.Error("list saved scholarships failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch saved scholarships"})
	}
	if items == nil {
		items = []models.SavedScholarship{}
	}
	return c.JSON(http.StatusOK, items)
}
