package oauth

import (
	"context"

	"github.com/rs/zerolog/log"
	"notebridge/internal/platform/models"
)

type RefreshClient interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

type UserTokenStore interface {
	UpdateTokens(externalID, accessToken, refreshToken string) error
}

// Refresher renews an expired access token with the stored refresh token and
// persists the new pair atomically. On ErrRefreshFailed the stored pair is
// left untouched for diagnostics.
type Refresher struct {
	client RefreshClient
	users  UserTokenStore
}

func NewRefresher(client RefreshClient, users UserTokenStore) *Refresher {
	return &Refresher{client: client, users: users}
}

// Refresh returns the new access token and updates user in place so callers
// can retry with it immediately.
func (r *Refresher) Refresh(ctx context.Context, user *models.User) (string, error) {
	pair, err := r.client.Refresh(ctx, user.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("external_id", user.ExternalID).Msg("token refresh failed")
		return "", err
	}

	if err := r.users.UpdateTokens(user.ExternalID, pair.AccessToken, pair.RefreshToken); err != nil {
		return "", err
	}

	user.AccessToken = pair.AccessToken
	user.RefreshToken = pair.RefreshToken
	log.Debug().Str("external_id", user.ExternalID).Msg("access token refreshed")
	return pair.AccessToken, nil
}
