package repositories

import (
	"database/sql"
	"time"

	"notebridge/internal/platform/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates or refreshes the single row for an external identity in one
// conditional write. The access/refresh pair and the workspace fields are
// overwritten together; target_resource_id survives re-authentication.
func (r *UserRepository) Upsert(user *models.User) error {
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO users (external_id, workspace_id, workspace_name, access_token, refresh_token, target_resource_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			workspace_id   = excluded.workspace_id,
			workspace_name = excluded.workspace_name,
			access_token   = excluded.access_token,
			refresh_token  = excluded.refresh_token,
			updated_at     = excluded.updated_at
	`, user.ExternalID, user.WorkspaceID, user.WorkspaceName, user.AccessToken, user.RefreshToken, user.TargetResourceID, user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepository) GetByExternalID(externalID string) (*models.User, error) {
	user := &models.User{}
	var targetResourceID sql.NullString
	err := r.db.QueryRow(`
		SELECT external_id, workspace_id, workspace_name, access_token, refresh_token, target_resource_id, created_at, updated_at
		FROM users WHERE external_id = ?
	`, externalID).Scan(&user.ExternalID, &user.WorkspaceID, &user.WorkspaceName, &user.AccessToken, &user.RefreshToken, &targetResourceID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	user.TargetResourceID = targetResourceID.String
	return user, nil
}

// UpdateTokens replaces the access/refresh pair in a single statement so the
// two can never drift apart.
func (r *UserRepository) UpdateTokens(externalID, accessToken, refreshToken string) error {
	_, err := r.db.Exec(`
		UPDATE users SET access_token = ?, refresh_token = ?, updated_at = ?
		WHERE external_id = ?
	`, accessToken, refreshToken, time.Now().Unix(), externalID)
	return err
}

func (r *UserRepository) SetTargetResource(externalID, resourceID string) error {
	_, err := r.db.Exec(`
		UPDATE users SET target_resource_id = ?, updated_at = ?
		WHERE external_id = ?
	`, resourceID, time.Now().Unix(), externalID)
	return err
}

// ClearTargetResource drops a stale reference after the provider reported the
// resource gone. System-initiated; the user picks a new one afterwards.
func (r *UserRepository) ClearTargetResource(externalID string) error {
	_, err := r.db.Exec(`
		UPDATE users SET target_resource_id = NULL, updated_at = ?
		WHERE external_id = ?
	`, time.Now().Unix(), externalID)
	return err
}
