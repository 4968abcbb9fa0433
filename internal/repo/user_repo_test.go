package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-auth-backend/internal/domain"
	"github.com/tbourn/go-auth-backend/internal/failure"
)

func TestCreateUser_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	u, err := CreateUser(context.Background(), db, &domain.User{Username: "a", Email: "a@x.io", PasswordHash: "h"})
	if err == nil || u != nil {
		t.Fatalf("expected error creating without table, got u=%v err=%v", u, err)
	}
	if failure.Is(err, failure.KindUniqueConstraint) {
		t.Fatalf("missing table must not look like a unique violation: %v", err)
	}
}

func TestCreateUser_SetsDefaults(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	start := time.Now().UTC().Add(-time.Second)

	u, err := CreateUser(context.Background(), db, &domain.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Role != domain.RoleUser {
		t.Fatalf("unexpected defaults: %+v", u)
	}
	if u.CreatedAt.Before(start) || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Fatalf("unexpected timestamps: %+v", u)
	}

	got, err := GetUserByID(context.Background(), db, u.ID)
	if err != nil || got.Username != "alice" {
		t.Fatalf("GetUserByID: got=%+v err=%v", got, err)
	}
}

func TestCreateUser_DuplicateEmailAndUsername(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, &domain.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := CreateUser(ctx, db, &domain.User{Username: "other", Email: "a@x.io", PasswordHash: "h"})
	var f *failure.Failure
	if !errors.As(err, &f) || f.Kind != failure.KindUniqueConstraint {
		t.Fatalf("expected unique failure, got %v", err)
	}
	if len(f.Fields) == 0 || f.Fields[0] != "email" {
		t.Fatalf("expected email field, got %v", f.Fields)
	}

	_, err = CreateUser(ctx, db, &domain.User{Username: "alice", Email: "new@x.io", PasswordHash: "h"})
	if !errors.As(err, &f) || len(f.Fields) == 0 || f.Fields[0] != "username" {
		t.Fatalf("expected username unique failure, got %v", err)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	if _, err := GetUserByEmail(context.Background(), db, "nobody@x.io"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountAndListUsersPage(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	base := time.Now().UTC()
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		u := &domain.User{ID: name + "-id", Username: name, Email: name + "@x.io", PasswordHash: "h", Role: domain.RoleUser,
			CreatedAt: base.Add(time.Duration(i) * time.Second), UpdatedAt: base}
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	total, err := CountUsers(ctx, db)
	if err != nil || total != 5 {
		t.Fatalf("CountUsers = %d, %v", total, err)
	}

	page, err := ListUsersPage(ctx, db, 2, 2)
	if err != nil {
		t.Fatalf("ListUsersPage: %v", err)
	}
	if len(page) != 2 || page[0].Username != "c" || page[1].Username != "d" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestUpdateUserFields(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	a, _ := CreateUser(ctx, db, &domain.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	if _, err := CreateUser(ctx, db, &domain.User{Username: "bob", Email: "b@x.io", PasswordHash: "h"}); err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	if err := UpdateUserFields(ctx, db, a.ID, map[string]any{"username": "alicia", "role": domain.RoleAdmin}); err != nil {
		t.Fatalf("UpdateUserFields: %v", err)
	}
	got, _ := GetUserByID(ctx, db, a.ID)
	if got.Username != "alicia" || got.Role != domain.RoleAdmin {
		t.Fatalf("update not applied: %+v", got)
	}

	err := UpdateUserFields(ctx, db, a.ID, map[string]any{"email": "b@x.io"})
	if !failure.Is(err, failure.KindUniqueConstraint) {
		t.Fatalf("expected unique failure on email, got %v", err)
	}

	if err := UpdateUserFields(ctx, db, "missing", map[string]any{"username": "z"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := UpdatePasswordHash(ctx, db, a.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, _ = GetUserByID(ctx, db, a.ID)
	if got.PasswordHash != "new-hash" {
		t.Fatalf("hash not updated: %q", got.PasswordHash)
	}
}

func TestDeleteUser_CascadesResets(t *testing.T) {
	db := newTestDB(t, &domain.User{}, &domain.PasswordReset{})
	ctx := context.Background()

	u, _ := CreateUser(ctx, db, &domain.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	if _, err := CreatePasswordReset(ctx, db, u.ID, "hash-1", time.Hour); err != nil {
		t.Fatalf("CreatePasswordReset: %v", err)
	}

	if err := DeleteUser(ctx, db, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := GetUserByID(ctx, db, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if _, err := GetPasswordResetByHash(ctx, db, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected reset cascade-deleted, got %v", err)
	}
	if err := DeleteUser(ctx, db, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}

	// The address is free again after a hard delete.
	if _, err := CreateUser(ctx, db, &domain.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"}); err != nil {
		t.Fatalf("re-register after delete: %v", err)
	}
}
