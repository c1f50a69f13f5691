package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/auth"
	"github.com/david/scholar-match/internal/cache"
	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/logging"
	"github.com/david/scholar-match/internal/metrics"
	"github.com/david/scholar-match/internal/models"
	"github.com/david/scholar-match/internal/reminders"
	"github.com/david/scholar-match/internal/tracker"
)

// Catalog is the read side of the scholarship store plus the admin upsert.
type Catalog interface {
	ListScholarships(ctx context.Context, params db.ListParams) (*db.ListResult, error)
	Catalog(ctx context.Context) ([]models.Scholarship, error)
	GetScholarship(ctx context.Context, id string) (*models.Scholarship, error)
	UpsertScholarship(ctx context.Context, sch models.Scholarship) error
}

type Profiles interface {
	GetProfile(ctx context.Context, studentID uuid.UUID) (models.Profile, error)
	SaveProfile(ctx context.Context, p models.Profile) (models.Profile, error)
}

type SavedItems interface {
	Save(ctx context.Context, studentID uuid.UUID, scholarshipID string) error
	Unsave(ctx context.Context, studentID uuid.UUID, scholarshipID string) error
	List(ctx context.Context, studentID uuid.UUID) ([]models.SavedScholarship, error)
}

type Authenticator interface {
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.AuthResponse, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error)
}

type Matcher interface {
	ComputeMatches(ctx context.Context, profile models.Profile, catalog []models.Scholarship) models.MatchSet
}

// Deps are the collaborators the server routes to. Auth, Metrics and Ping may be nil.
type Deps struct {
	Catalog     Catalog
	Profiles    Profiles
	Saved       SavedItems
	Auth        Authenticator
	Engine      Matcher
	Cache       *cache.MatchCache
	Tracker     *tracker.Tracker
	Reminders   *reminders.Service
	Tokens      *auth.Tokens
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Ping        func(ctx context.Context) error
	CORSOrigins []string
	AdminSecret string
}

type Server struct {
	Echo *echo.Echo

	catalog     Catalog
	profiles    Profiles
	saved       SavedItems
	auth        Authenticator
	engine      Matcher
	cache       *cache.MatchCache
	tracker     *tracker.Tracker
	reminders   *reminders.Service
	tokens      *auth.Tokens
	metrics     *metrics.Metrics
	logger      *zap.Logger
	ping        func(ctx context.Context) error
	adminSecret string
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

func NewServer(d Deps) (*Server, error) {
	if d.Tokens == nil {
		return nil, errors.New("api: token verifier is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	adminSecret := strings.TrimSpace(d.AdminSecret)
	if adminSecret == "" {
		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate admin fallback secret: %w", err)
		}
		adminSecret = base64.RawURLEncoding.EncodeToString(buf)
		logger.Warn("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{v: validator.New()}
	e.Use(middleware.RequestID())
	e.Use(logging.EchoMiddleware(logger))
	if d.Metrics != nil {
		e.Use(d.Metrics.EchoMiddleware())
	}
	e.Use(middleware.Recover())

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	s := &Server{
		Echo:        e,
		catalog:     d.Catalog,
		profiles:    d.Profiles,
		saved:       d.Saved,
		auth:        d.Auth,
		engine:      d.Engine,
		cache:       d.Cache,
		tracker:     d.Tracker,
		reminders:   d.Reminders,
		tokens:      d.Tokens,
		metrics:     d.Metrics,
		logger:      logger.Named("api"),
		ping:        d.Ping,
		adminSecret: adminSecret,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	api := s.Echo.Group("/api/v1")
	api.GET("/scholarships", s.handleListScholarships)
	api.GET("/scholarships/:id", s.handleGetScholarship)

	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/scholarships", s.handleUpsertScholarships)

	student := api.Group("")
	student.Use(s.tokens.Middleware)

	student.GET("/profile", s.handleGetProfile)
	student.PUT("/profile", s.handleSaveProfile)

	student.GET("/matches", s.handleGetMatches)
	student.POST("/matches/refresh", s.handleRefreshMatches)

	student.POST("/applications", s.handleCreateApplication)
	student.GET("/applications", s.handleListApplications)
	student.GET("/applications/:id", s.handleGetApplication)
	student.PATCH("/applications/:id/status", s.handleUpdateApplicationStatus)

	student.POST("/reminders", s.handleCreateReminder)
	student.GET("/reminders", s.handleListReminders)
	student.PATCH("/reminders/:id", s.handleToggleReminder)
	student.DELETE("/reminders/:id", s.handleDeleteReminder)

	student.POST("/saved/:id", s.handleSaveScholarship)
	student.DELETE("/saved/:id", s.handleUnsaveScholarship)
	student.GET("/saved", s.handleListSaved)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.ping != nil {
		if err := s.ping(c.Request().Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "database unavailable"})
		}
	}
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	if s.auth == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "signup unavailable"})
	}
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	resp, err := s.auth.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrStudentExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		s.logger.Error("signup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	if s.auth == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "login unavailable"})
	}
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.auth.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		s.logger.Error("login failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		provided := c.Request().Header.Get("X-Admin-Secret")
		if provided == "" {
			authHeader := c.Request().Header.Get("Authorization")
			if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
				provided = authHeader[7:]
			}
		}
		if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(s.adminSecret)) == 1 {
			return next(c)
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func studentID(c echo.Context) (uuid.UUID, bool) {
	id, err := auth.GetStudentIDFromContext(c)
	return id, err == nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

// splitCSV splits a comma-separated query parameter into trimmed non-empty strings.
func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
