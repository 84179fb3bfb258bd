package repositories

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"notebridge/internal/platform/models"
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

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Keep everything on one connection; each :memory: connection is a
	// separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func setupFileDB(t *testing.T) *sql.DB {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func TestLicenseRepository_CreateBatchAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLicenseRepository(db)

	now := time.Now().Unix()
	batch := []*models.License{
		{Key: "BETA-AAAA-BBBB-CCCC", IsActive: true, CreatedBy: "admin", Notes: "pilot", CreatedAt: now},
		{Key: "BETA-DDDD-EEEE-FFFF", IsActive: true, CreatedAt: now},
	}
	if err := repo.CreateBatch(batch); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}

	l, err := repo.GetByKey("BETA-AAAA-BBBB-CCCC")
	if err != nil {
		t.Fatalf("Failed to get license: %v", err)
	}
	if l == nil || !l.IsActive || l.Notes != "pilot" || l.Used() {
		t.Errorf("Unexpected license: %+v", l)
	}

	exists, err := repo.ExistsByKey("BETA-DDDD-EEEE-FFFF")
	if err != nil || !exists {
		t.Errorf("Expected key to exist, got %v, %v", exists, err)
	}

	missing, err := repo.GetByKey("BETA-ZZZZ-ZZZZ-ZZZZ")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for unknown key, got %+v, %v", missing, err)
	}
}

func TestLicenseRepository_CreateBatchAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLicenseRepository(db)

	now := time.Now().Unix()
	seed := []*models.License{{Key: "BETA-AAAA-BBBB-CCCC", IsActive: true, CreatedAt: now}}
	if err := repo.CreateBatch(seed); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	// Second key collides with the seeded one; the whole batch must roll back.
	batch := []*models.License{
		{Key: "BETA-GGGG-HHHH-JJJJ", IsActive: true, CreatedAt: now},
		{Key: "BETA-AAAA-BBBB-CCCC", IsActive: true, CreatedAt: now},
	}
	if err := repo.CreateBatch(batch); err == nil {
		t.Fatal("Expected batch insert to fail on collision")
	}

	exists, _ := repo.ExistsByKey("BETA-GGGG-HHHH-JJJJ")
	if exists {
		t.Error("Partial batch was committed")
	}
}

func TestLicenseRepository_TryActivate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLicenseRepository(db)

	now := time.Now().Unix()
	repo.CreateBatch([]*models.License{{Key: "BETA-AAAA-BBBB-CCCC", IsActive: true, CreatedAt: now}})

	ok, err := repo.TryActivate("BETA-AAAA-BBBB-CCCC", "user-1", now)
	if err != nil || !ok {
		t.Fatalf("Expected activation to succeed, got %v, %v", ok, err)
	}

	// Already claimed: conditional update must not fire, for either user.
	ok, _ = repo.TryActivate("BETA-AAAA-BBBB-CCCC", "user-1", now)
	if ok {
		t.Error("Re-activation must not re-fire the conditional update")
	}
	ok, _ = repo.TryActivate("BETA-AAAA-BBBB-CCCC", "user-2", now)
	if ok {
		t.Error("Second user must not be able to claim the key")
	}

	l, _ := repo.GetByKey("BETA-AAAA-BBBB-CCCC")
	if l.UsedByUserID != "user-1" || l.ActivatedAt == nil {
		t.Errorf("Unexpected license after activation: %+v", l)
	}
}

func TestLicenseRepository_ConcurrentActivation(t *testing.T) {
	db := setupFileDB(t)
	repo := NewLicenseRepository(db)

	now := time.Now().Unix()
	repo.CreateBatch([]*models.License{{Key: "BETA-AAAA-BBBB-CCCC", IsActive: true, CreatedAt: now}})

	var wg sync.WaitGroup
	results := make([]bool, 2)
	users := []string{"user-1", "user-2"}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.TryActivate("BETA-AAAA-BBBB-CCCC", users[i], now)
			if err != nil {
				t.Errorf("Activation error: %v", err)
				return
			}
			results[i] = ok
		}(i)
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("Exactly one concurrent activation must win, got %v", results)
	}

	l, _ := repo.GetByKey("BETA-AAAA-BBBB-CCCC")
	winner := users[0]
	if results[1] {
		winner = users[1]
	}
	if l.UsedByUserID != winner {
		t.Errorf("Key bound to %q, expected %q", l.UsedByUserID, winner)
	}
}

func TestLicenseRepository_Revoke(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLicenseRepository(db)

	now := time.Now().Unix()
	repo.CreateBatch([]*models.License{{Key: "BETA-AAAA-BBBB-CCCC", IsActive: true, CreatedAt: now}})
	repo.TryActivate("BETA-AAAA-BBBB-CCCC", "user-1", now)

	ok, err := repo.Revoke("BETA-AAAA-BBBB-CCCC", now)
	if err != nil || !ok {
		t.Fatalf("Expected revoke to succeed, got %v, %v", ok, err)
	}
	ok, _ = repo.Revoke("BETA-AAAA-BBBB-CCCC", now)
	if ok {
		t.Error("Second revoke must report no change")
	}

	l, _ := repo.GetByKey("BETA-AAAA-BBBB-CCCC")
	if l.IsActive || l.RevokedAt == nil {
		t.Errorf("Unexpected license after revoke: %+v", l)
	}
	if l.UsedByUserID != "user-1" {
		t.Error("Revoke must preserve used_by_user_id")
	}

	// A revoked key can never be activated again.
	ok, _ = repo.TryActivate("BETA-AAAA-BBBB-CCCC", "user-3", now)
	if ok {
		t.Error("Revoked key was activated")
	}
}

func TestLicenseRepository_GetByUserAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLicenseRepository(db)

	now := time.Now().Unix()
	repo.CreateBatch([]*models.License{
		{Key: "BETA-AAAA-BBBB-CCCC", IsActive: true, CreatedAt: now},
		{Key: "BETA-DDDD-EEEE-FFFF", IsActive: true, CreatedAt: now + 1},
	})
	repo.TryActivate("BETA-AAAA-BBBB-CCCC", "user-1", now)
	repo.Revoke("BETA-DDDD-EEEE-FFFF", now)

	l, err := repo.GetByUser("user-1")
	if err != nil || l == nil || l.Key != "BETA-AAAA-BBBB-CCCC" {
		t.Errorf("Unexpected GetByUser result: %+v, %v", l, err)
	}

	none, err := repo.GetByUser("user-9")
	if err != nil || none != nil {
		t.Errorf("Expected nil for unbound user, got %+v, %v", none, err)
	}

	all, err := repo.List(false)
	if err != nil || len(all) != 2 {
		t.Fatalf("Expected 2 licenses, got %d, %v", len(all), err)
	}

	active, err := repo.List(true)
	if err != nil || len(active) != 1 || active[0].Key != "BETA-AAAA-BBBB-CCCC" {
		t.Errorf("Unexpected active list: %+v, %v", active, err)
	}
}
