package repositories

import (
	"database/sql"

	"notebridge/internal/platform/models"
)

type LicenseRepository struct {
	db *sql.DB
}

func NewLicenseRepository(db *sql.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

// CreateBatch inserts a batch of freshly generated keys. All-or-nothing: a
// collision on any key rolls back the whole batch.
func (r *LicenseRepository) CreateBatch(licenses []*models.License) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, l := range licenses {
		_, err := tx.Exec(`
			INSERT INTO license_keys (key, is_active, created_by, notes, created_at)
			VALUES (?, 1, ?, ?, ?)
		`, l.Key, l.CreatedBy, l.Notes, l.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *LicenseRepository) ExistsByKey(key string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(1) FROM license_keys WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TryActivate is the single-use guard: a conditional update that only fires
// when the key is active and unclaimed. Concurrent attempts by two users
// resolve in the database; exactly one sees a row affected.
func (r *LicenseRepository) TryActivate(key, externalID string, now int64) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE license_keys
		SET used_by_user_id = ?, activated_at = ?
		WHERE key = ? AND is_active = 1 AND used_by_user_id IS NULL
	`, externalID, now, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Revoke flips is_active and stamps revoked_at once. used_by_user_id is left
// in place so the activation history survives revocation.
func (r *LicenseRepository) Revoke(key string, now int64) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE license_keys
		SET is_active = 0, revoked_at = ?
		WHERE key = ? AND is_active = 1
	`, now, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *LicenseRepository) GetByKey(key string) (*models.License, error) {
	row := r.db.QueryRow(`
		SELECT key, is_active, used_by_user_id, created_by, notes, created_at, activated_at, revoked_at
		FROM license_keys WHERE key = ?
	`, key)
	return scanLicense(row)
}

// GetByUser returns the license bound to an external identity, or nil if the
// user never activated one.
func (r *LicenseRepository) GetByUser(externalID string) (*models.License, error) {
	row := r.db.QueryRow(`
		SELECT key, is_active, used_by_user_id, created_by, notes, created_at, activated_at, revoked_at
		FROM license_keys WHERE used_by_user_id = ?
	`, externalID)
	return scanLicense(row)
}

func (r *LicenseRepository) List(activeOnly bool) ([]*models.License, error) {
	query := `
		SELECT key, is_active, used_by_user_id, created_by, notes, created_at, activated_at, revoked_at
		FROM license_keys
	`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		l, err := scanLicenseRow(rows)
		if err != nil {
			return nil, err
		}
		licenses = append(licenses, l)
	}
	return licenses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLicense(row *sql.Row) (*models.License, error) {
	l, err := scanLicenseRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func scanLicenseRow(row rowScanner) (*models.License, error) {
	var l models.License
	var usedBy sql.NullString
	var createdBy sql.NullString
	var notes sql.NullString
	var activatedAt sql.NullInt64
	var revokedAt sql.NullInt64

	err := row.Scan(&l.Key, &l.IsActive, &usedBy, &createdBy, &notes, &l.CreatedAt, &activatedAt, &revokedAt)
	if err != nil {
		return nil, err
	}

	l.UsedByUserID = usedBy.String
	l.CreatedBy = createdBy.String
	l.Notes = notes.String
	if activatedAt.Valid {
		l.ActivatedAt = new(int64)
		*l.ActivatedAt = activatedAt.Int64
	}
	if revokedAt.Valid {
		l.RevokedAt = new(int64)
		*l.RevokedAt = revokedAt.Int64
	}

	return &l, nil
}
