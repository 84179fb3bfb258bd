package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	apiContext "notebridge/internal/api/context"
	"notebridge/internal/engine/oauth"
	"notebridge/internal/platform/auth"
	"notebridge/internal/platform/config"
	"notebridge/internal/platform/models"
	"notebridge/internal/platform/repositories"
)

const testSchema = `
	CREATE TABLE users (
		external_id        TEXT PRIMARY KEY,
		workspace_id       TEXT NOT NULL,
		workspace_name     TEXT,
		access_token       TEXT NOT NULL,
		refresh_token      TEXT,
		target_resource_id TEXT,
		created_at         INTEGER NOT NULL,
		updated_at         INTEGER NOT NULL
	);
	CREATE TABLE license_keys (
		key             TEXT PRIMARY KEY,
		is_active       INTEGER NOT NULL DEFAULT 1,
		used_by_user_id TEXT,
		created_by      TEXT,
		notes           TEXT,
		created_at      INTEGER NOT NULL,
		activated_at    INTEGER,
		revoked_at      INTEGER
	);
`

func setupHandlerDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func seedLicense(t *testing.T, repo *repositories.LicenseRepository, key string) {
	t.Helper()
	err := repo.CreateBatch([]*models.License{{Key: key, IsActive: true, CreatedAt: time.Now().Unix()}})
	if err != nil {
		t.Fatalf("Failed to seed license: %v", err)
	}
}

func testSessions() *auth.SessionService {
	return auth.NewSessionService(config.SessionConfig{Secret: "test-secret", TTL: 7 * 24 * time.Hour})
}

// withUser injects an authenticated user the way the auth middleware does.
func withUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), apiContext.CurrentUser, user)
	return r.WithContext(ctx)
}

type stubExchanger struct {
	grant *oauth.TokenGrant
	err   error
}

func (s *stubExchanger) ExchangeCode(ctx context.Context, code string) (*oauth.TokenGrant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.grant, nil
}

type stubRefreshClient struct {
	pair  *oauth.TokenPair
	err   error
	calls int
}

func (s *stubRefreshClient) Refresh(ctx context.Context, refreshToken string) (*oauth.TokenPair, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.pair, nil
}
