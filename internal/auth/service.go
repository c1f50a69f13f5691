package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrStudentExists = errors.New("student already exists")
	ErrInvalidCreds  = errors.New("invalid credentials")
)

type Student struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

type Service struct {
	db     *pgxpool.Pool
	tokens *Tokens
}

func NewService(db *pgxpool.Pool, tokens *Tokens) *Service {
	return &Service{db: db, tokens: tokens}
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing failed: %w", err)
	}

	var student Student
	err = s.db.QueryRow(ctx, `
		INSERT INTO students (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, created_at
	`, email, string(hash)).Scan(&student.ID, &student.Email, &student.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrStudentExists
		}
		return nil, fmt.Errorf("insert failed: %w", err)
	}

	token, err := s.tokens.Issue(student.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Student: student}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var student Student
	err := s.db.QueryRow(ctx, "SELECT id, email, password_hash, created_at FROM students WHERE email = $1", normalizeEmail(req.Email)).Scan(
		&student.ID, &student.Email, &student.PasswordHash, &student.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCreds
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCreds
	}

	token, err := s.tokens.Issue(student.ID)
	if err != nil {
		return nil, err
	}

	student.PasswordHash = ""
	return &AuthResponse{Token: token, Student: student}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
