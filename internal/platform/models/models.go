package models

// User is one row per external workspace identity. Re-authentication with the
// same identity updates this row, it never creates a second one.
type User struct {
	ExternalID       string `json:"external_id"`
	WorkspaceID      string `json:"workspace_id"`
	WorkspaceName    string `json:"workspace_name"`
	AccessToken      string `json:"-"`
	RefreshToken     string `json:"-"`
	TargetResourceID string `json:"target_resource_id,omitempty"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}

// HasTargetResource reports whether the user has picked a destination page.
func (u *User) HasTargetResource() bool {
	return u != nil && u.TargetResourceID != ""
}

type License struct {
	Key          string `json:"key"`
	IsActive     bool   `json:"is_active"`
	UsedByUserID string `json:"used_by_user_id,omitempty"`
	CreatedBy    string `json:"created_by,omitempty"`
	Notes        string `json:"notes,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	ActivatedAt  *int64 `json:"activated_at,omitempty"`
	RevokedAt    *int64 `json:"revoked_at,omitempty"`
}

// Used reports whether the key has ever been activated. A used key stays used
// after revocation; history is preserved.
func (l *License) Used() bool {
	return l.ActivatedAt != nil
}
