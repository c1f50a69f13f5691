package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/models"
)

type profileRequest struct {
	FullName           string   `json:"full_name"`
	EducationLevel     string   `json:"education_level" validate:"required"`
	FieldOfStudy       string   `json:"field_of_study"`
	AcademicScore      string   `json:"academic_score"`
	Country            string   `json:"country" validate:"required"`
	PreferredCountries []string `json:"preferred_countries"`
	Languages          []string `json:"languages"`
	FinancialNeed      bool     `json:"financial_need"`
	IncomeBracket      string   `json:"income_bracket"`
	Gender             string   `json:"gender"`
	Age                string   `json:"age"`
	Institution        string   `json:"institution"`
}

type matchesResponse struct {
	models.MatchSet
	Cached bool `json:"cached"`
}

func (s *Server) handleGetProfile(c echo.Context) error {
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := s.profiles.GetProfile(c.Request().Context(), sid)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Profile not found"})
	}
	if err != nil {
		s.logger.Error("get profile failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, p)
}

// handleSaveProfile stores a new snapshot and drops the match set of the one it replaces.
func (s *Server) handleSaveProfile(c echo.Context) error {
	ctx := c.Request().Context()
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}

	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	previous, prevErr := s.profiles.GetProfile(ctx, sid)

	saved, err := s.profiles.SaveProfile(ctx, models.Profile{
		StudentID:          sid,
		FullName:           req.FullName,
		EducationLevel:     req.EducationLevel,
		FieldOfStudy:       req.FieldOfStudy,
		AcademicScore:      req.AcademicScore,
		Country:            req.Country,
		PreferredCountries: req.PreferredCountries,
		Languages:          req.Languages,
		FinancialNeed:      req.FinancialNeed,
		IncomeBracket:      req.IncomeBracket,
		Gender:             req.Gender,
		Age:                req.Age,
		Institution:        req.Institution,
	})
	if err != nil {
		s.logger.Error("save profile failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save profile"})
	}

	if prevErr == nil {
		if err := s.cache.Invalidate(ctx, previous.Identity()); err != nil {
			s.logger.Warn("failed to invalidate previous match set", zap.String("identity", previous.Identity()), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleGetMatches(c echo.Context) error {
	return s.serveMatches(c, false)
}

func (s *Server) handleRefreshMatches(c echo.Context) error {
	return s.serveMatches(c, true)
}

func (s *Server) serveMatches(c echo.Context, refresh bool) error {
	ctx := c.Request().Context()
	sid, ok := studentID(c)
	if !ok {
		return unauthorized(c)
	}

	profile, err := s.profiles.GetProfile(ctx, sid)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Complete your profile to see matches"})
	}
	if err != nil {
		s.logger.Error("get profile failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	identity := profile.Identity()
	if refresh {
		if err := s.cache.Invalidate(ctx, identity); err != nil {
			s.logger.Warn("failed to invalidate match set", zap.String("identity", identity), zap.Error(err))
		}
	}

	set, cached, err := s.cache.GetOrCompute(ctx, identity, func(ctx context.Context) (models.MatchSet, error) {
		catalog, err := s.catalog.Catalog(ctx)
		if err != nil {
			return models.MatchSet{}, err
		}
		return s.engine.ComputeMatches(ctx, profile, catalog), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Debug("match request abandoned", zap.String("identity", identity), zap.Error(err))
			return ctx.Err()
		}
		s.logger.Error("matching failed", zap.String("identity", identity), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load scholarships"})
	}

	return c.JSON(http.StatusOK, matchesResponse{MatchSet: set, Cached: cached})
}
