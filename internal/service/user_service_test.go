package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"collab-llm/internal/domain"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) List(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	for _, u := range m.usersByID {
		users = append(users, u)
	}
	return users, nil
}

func TestUserServiceRegister_HashesAndNormalizes(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  User@Example.COM ",
		Password: "secreta",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.ID == "" {
		t.Fatalf("expected generated id")
	}

	stored := repo.usersByID[user.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "secreta" {
		t.Fatalf("expected hashed password, got %q", stored.PasswordHash)
	}
}

func TestUserServiceRegister_Validation(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "abc"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "ab"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestUserServiceRegister_RejectsDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "abc"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "A@B.com", Password: "abc"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserServiceAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "abc"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(context.Background(), "a@b.com", "abc")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.Authenticate(context.Background(), "a@b.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@b.com", "abc"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUserServiceGetByID_NotFound(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
