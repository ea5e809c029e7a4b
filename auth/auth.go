/*
Package auth provides username/password login and bearer-token checks.

PURPOSE:
  Gates the HTTP API. Passwords are stored as bcrypt hashes; a successful
  login returns an HS256 JWT that the Middleware accepts on every other
  /api route. The fuel ledger itself never sees identity beyond the
  optional CreatedBy user ID.

FLOW:
  POST /api/auth/login {username, password}
    -> Service.Login: load user, bcrypt compare, Issuer.Issue
    -> {"token": "...", "expiresAt": "..."}

  Authorization: Bearer <token>
    -> Middleware: Issuer.Parse, identity stored in request context

SEE ALSO:
  - jwt.go: Token issue/parse
  - middleware.go: chi-compatible middleware
  - ../seed: Creates the bootstrap admin user
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

// User is an operator who can sign in.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

// UserStore persists users. GetUserByUsername returns (nil, nil) when
// the user does not exist.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	InsertUser(ctx context.Context, u *User) error
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Service checks credentials and issues tokens.
type Service struct {
	users  UserStore
	issuer *Issuer
}

// NewService creates a login service.
func NewService(users UserStore, issuer *Issuer) *Service {
	return &Service{users: users, issuer: issuer}
}

// Login verifies the credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: load user: %w", err)
	}
	if u == nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.issuer.Issue(*u)
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, username, password, name string) (*User, error) {
	return CreateUser(ctx, s.users, username, password, name)
}

// CreateUser hashes the password and stores a new user.
func CreateUser(ctx context.Context, users UserStore, username, password, name string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("auth: empty username")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username:     username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
