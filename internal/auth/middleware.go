package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const StudentIDKey contextKey = "student_id"

// Middleware validates the bearer token and stores the student id in the echo context.
func (t *Tokens) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
		}

		studentID, err := t.Verify(parts[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set(string(StudentIDKey), studentID)
		return next(c)
	}
}

func GetStudentIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(string(StudentIDKey)).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("student ID not found in context")
	}
	return id, nil
}
