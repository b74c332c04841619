package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"pressly/internal/store"
)

type fakeUserStore struct {
	users map[string]store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]store.User)}
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	user, ok := f.users[username]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user store.User) error {
	f.users[user.Username] = user
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(newFakeUserStore(), false)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Username: "avery", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated user id")
	}
	if user.Role != "user" {
		t.Fatalf("expected role user, got %q", user.Role)
	}
	if user.Nickname != "avery" {
		t.Fatalf("expected nickname to default to username, got %q", user.Nickname)
	}
	if user.AppsCount != 10 || user.DocumentsCount != 20 {
		t.Fatalf("expected default quotas 10/20, got %d/%d", user.AppsCount, user.DocumentsCount)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("hunter2hunter2")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	logged, err := svc.Login(ctx, LoginRequest{Username: "avery", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected login to return the registered user")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc := NewService(newFakeUserStore(), false)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Username: "avery", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterRequest{Username: "avery", Password: "other-password"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterRespectsDisabledFlag(t *testing.T) {
	svc := NewService(newFakeUserStore(), true)
	_, err := svc.Register(context.Background(), RegisterRequest{Username: "avery", Password: "hunter2hunter2"})
	if !errors.Is(err, ErrRegistrationDisabled) {
		t.Fatalf("expected ErrRegistrationDisabled, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := NewService(newFakeUserStore(), false)
	_, err := svc.Register(context.Background(), RegisterRequest{Username: "avery", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs, false)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Username: "avery", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Username: "avery", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Username: "nobody", Password: "hunter2hunter2"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}
