package repositories

import (
	"testing"

	"notebridge/internal/platform/models"
)

func TestUserRepository_UpsertCreatesSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	first := &models.User{
		ExternalID:    "bot-1",
		WorkspaceID:   "ws-1",
		WorkspaceName: "Acme Notes",
		AccessToken:   "at-1",
		RefreshToken:  "rt-1",
	}
	if err := repo.Upsert(first); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	// Re-authentication with the same identity: tokens and workspace fields
	// overwritten, still one row.
	second := &models.User{
		ExternalID:    "bot-1",
		WorkspaceID:   "ws-1",
		WorkspaceName: "Acme Notes Renamed",
		AccessToken:   "at-2",
		RefreshToken:  "rt-2",
	}
	if err := repo.Upsert(second); err != nil {
		t.Fatalf("Failed to re-upsert: %v", err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(1) FROM users WHERE external_id = 'bot-1'`).Scan(&count)
	if count != 1 {
		t.Fatalf("Expected exactly one row, got %d", count)
	}

	user, err := repo.GetByExternalID("bot-1")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.AccessToken != "at-2" || user.RefreshToken != "rt-2" {
		t.Errorf("Token pair not overwritten together: %+v", user)
	}
	if user.WorkspaceName != "Acme Notes Renamed" {
		t.Errorf("Workspace name not overwritten: %q", user.WorkspaceName)
	}
}

func TestUserRepository_UpsertPreservesTargetResource(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{ExternalID: "bot-1", WorkspaceID: "ws-1", AccessToken: "at-1"}
	repo.Upsert(user)
	repo.SetTargetResource("bot-1", "page-1")

	// Re-auth must not wipe the user's chosen target.
	repo.Upsert(&models.User{ExternalID: "bot-1", WorkspaceID: "ws-1", AccessToken: "at-2"})

	stored, _ := repo.GetByExternalID("bot-1")
	if stored.TargetResourceID != "page-1" {
		t.Errorf("Target resource lost on re-auth: %q", stored.TargetResourceID)
	}
}

func TestUserRepository_UpdateTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	repo.Upsert(&models.User{ExternalID: "bot-1", WorkspaceID: "ws-1", AccessToken: "at-1", RefreshToken: "rt-1"})

	if err := repo.UpdateTokens("bot-1", "at-2", "rt-2"); err != nil {
		t.Fatalf("Failed to update tokens: %v", err)
	}

	user, _ := repo.GetByExternalID("bot-1")
	if user.AccessToken != "at-2" || user.RefreshToken != "rt-2" {
		t.Errorf("Expected new token pair, got %+v", user)
	}
}

func TestUserRepository_TargetResourceLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	repo.Upsert(&models.User{ExternalID: "bot-1", WorkspaceID: "ws-1", AccessToken: "at-1"})

	user, _ := repo.GetByExternalID("bot-1")
	if user.HasTargetResource() {
		t.Error("New user must not have a target resource")
	}

	repo.SetTargetResource("bot-1", "page-1")
	user, _ = repo.GetByExternalID("bot-1")
	if user.TargetResourceID != "page-1" {
		t.Errorf("Expected page-1, got %q", user.TargetResourceID)
	}

	repo.ClearTargetResource("bot-1")
	user, _ = repo.GetByExternalID("bot-1")
	if user.HasTargetResource() {
		t.Errorf("Expected cleared target, got %q", user.TargetResourceID)
	}
}

func TestUserRepository_GetUnknown(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.GetByExternalID("missing")
	if err != nil || user != nil {
		t.Errorf("Expected nil, nil for unknown user, got %+v, %v", user, err)
	}
}
