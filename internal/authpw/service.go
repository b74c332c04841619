// Package authpw provides username/password authentication.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pressly/internal/store"
	"pressly/internal/util"
)

var (
	ErrRegistrationDisabled = errors.New("registration disabled")
	ErrUsernameTaken        = errors.New("username already registered")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrWeakPassword         = errors.New("password must be at least 8 characters")
	ErrMissingFields        = errors.New("username and password are required")
)

// UserStore defines the storage surface needed for authentication.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

type Service struct {
	store               UserStore
	disableRegistration bool
}

func NewService(userStore UserStore, disableRegistration bool) *Service {
	return &Service{
		store:               userStore,
		disableRegistration: disableRegistration,
	}
}

type RegisterRequest struct {
	Username string
	Password string
	Nickname string
	Email    string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	if s.disableRegistration {
		return store.User{}, ErrRegistrationDisabled
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return store.User{}, ErrMissingFields
	}
	if len(req.Password) < 8 {
		return store.User{}, ErrWeakPassword
	}

	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return store.User{}, ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = username
	}

	user := store.User{
		ID:             util.NewID(),
		Username:       username,
		Nickname:       nickname,
		Email:          strings.TrimSpace(req.Email),
		HashedPassword: string(hash),
		Role:           "user",
		AppsCount:      10,
		DocumentsCount: 20,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

type LoginRequest struct {
	Username string
	Password string
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (store.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword is used by the bootstrap seed for the initial admin user.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
