package gate

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"notebridge/internal/engine/oauth"
	"notebridge/internal/engine/workspace"
	"notebridge/internal/platform/models"
)

var (
	// ErrReauthRequired: the refresh token was revoked upstream. The stored
	// pair is left in place; only a full OAuth restart can recover.
	ErrReauthRequired = errors.New("re-authentication required")

	// ErrResourceGone: the stored target resource was deleted upstream. The
	// stale reference has already been cleared by the time this is returned.
	ErrResourceGone = errors.New("target resource deleted upstream")

	// ErrNoTargetConfigured is the expected first-run state, reported before
	// any downstream call is attempted.
	ErrNoTargetConfigured = errors.New("no target resource configured")
)

type TokenRefresher interface {
	Refresh(ctx context.Context, user *models.User) (string, error)
}

type UserStore interface {
	ClearTargetResource(externalID string) error
}

// Gate runs workspace calls on behalf of an authenticated user and resolves
// provider-side invalidation: one transparent token refresh per request,
// self-healing of deleted target references. Everything it cannot resolve
// locally comes back as a typed error for the handler to map.
type Gate struct {
	refresher TokenRefresher
	users     UserStore
}

func New(refresher TokenRefresher, users UserStore) *Gate {
	return &Gate{refresher: refresher, users: users}
}

// Do runs call with the stored access token. If the provider rejects the
// token, the gate refreshes it and retries exactly once. No other recovery.
func (g *Gate) Do(ctx context.Context, user *models.User, call func(token string) error) error {
	err := call(user.AccessToken)
	if !errors.Is(err, workspace.ErrUnauthorized) {
		return err
	}

	token, rerr := g.refresher.Refresh(ctx, user)
	if rerr != nil {
		if errors.Is(rerr, oauth.ErrRefreshFailed) {
			return ErrReauthRequired
		}
		return rerr
	}

	return call(token)
}

// DoWithTarget is Do for content-producing calls that write to the user's
// target resource. A missing target short-circuits; a 404 from the provider
// clears the stored reference and reports it gone.
func (g *Gate) DoWithTarget(ctx context.Context, user *models.User, call func(token, targetID string) error) error {
	if !user.HasTargetResource() {
		return ErrNoTargetConfigured
	}
	targetID := user.TargetResourceID

	err := g.Do(ctx, user, func(token string) error {
		return call(token, targetID)
	})

	if errors.Is(err, workspace.ErrNotFound) {
		if cerr := g.users.ClearTargetResource(user.ExternalID); cerr != nil {
			log.Error().Err(cerr).Str("external_id", user.ExternalID).Msg("failed to clear stale target resource")
			return cerr
		}
		user.TargetResourceID = ""
		log.Info().Str("external_id", user.ExternalID).Str("resource_id", targetID).Msg("target resource gone, reference cleared")
		return ErrResourceGone
	}

	return err
}
