package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/client-registry/internal/domain"
	"github.com/msomdec/client-registry/internal/repository/sqlite"
)

func newUser(email string) *domain.User {
	return &domain.User{
		ID:           uuid.NewString(),
		Username:     "Test User",
		Email:        email,
		PasswordHash: "hashedpw",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := sqlite.NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := newUser("test@gmail.com")
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Email != user.Email || byID.Username != user.Username {
		t.Fatalf("unexpected user %+v", byID)
	}

	byEmail, err := repo.GetByEmail(ctx, "TEST@gmail.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected id %q, got %q", user.ID, byEmail.ID)
	}
	if byEmail.PasswordHash != "hashedpw" {
		t.Fatalf("expected password hash round trip, got %q", byEmail.PasswordHash)
	}
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo := sqlite.NewUserRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, newUser("dup@gmail.com")); err != nil {
		t.Fatalf("Create user1: %v", err)
	}
	err := repo.Create(ctx, newUser("Dup@gmail.com"))
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict kind, got %v", err)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := sqlite.NewUserRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("GetByID: expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@gmail.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("GetByEmail: expected ErrUserNotFound, got %v", err)
	}
}
