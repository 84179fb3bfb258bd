package license

import (
	"time"

	"github.com/rs/zerolog/log"
	"notebridge/internal/platform/models"
)

// Outcome classifies an activation or revocation attempt. Stable strings:
// they appear in API responses.
type Outcome string

const (
	OutcomeActivated                   Outcome = "activated"
	OutcomeAlreadyActivatedBySameUser  Outcome = "already_activated_by_same_user"
	OutcomeAlreadyActivatedByOtherUser Outcome = "already_activated_by_other_user"
	OutcomeRevoked                     Outcome = "revoked"
	OutcomeAlreadyRevoked              Outcome = "already_revoked"
	OutcomeNotFound                    Outcome = "not_found"
	OutcomeInvalidFormat               Outcome = "invalid_format"
)

// OK reports whether an activation outcome grants access. Re-activating your
// own key counts: a returning user must not be turned away.
func (o Outcome) OK() bool {
	return o == OutcomeActivated || o == OutcomeAlreadyActivatedBySameUser
}

type Store interface {
	CreateBatch(licenses []*models.License) error
	ExistsByKey(key string) (bool, error)
	TryActivate(key, externalID string, now int64) (bool, error)
	Revoke(key string, now int64) (bool, error)
	GetByKey(key string) (*models.License, error)
}

type Service struct {
	store  Store
	prefix string
}

func NewService(store Store, prefix string) *Service {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Service{store: store, prefix: prefix}
}

// Generate creates count keys as one all-or-nothing batch.
func (s *Service) Generate(count int, note, createdBy string) ([]*models.License, error) {
	now := time.Now().Unix()
	seen := make(map[string]bool, count)
	licenses := make([]*models.License, 0, count)

	for len(licenses) < count {
		key, err := GenerateKey(s.prefix, s.store)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		licenses = append(licenses, &models.License{
			Key:       key,
			IsActive:  true,
			CreatedBy: createdBy,
			Notes:     note,
			CreatedAt: now,
		})
	}

	if err := s.store.CreateBatch(licenses); err != nil {
		return nil, err
	}
	return licenses, nil
}

// Activate enforces single-use-per-user semantics. The happy path is one
// conditional update; only contested or dead keys need the classifying read.
func (s *Service) Activate(key, externalID string) (Outcome, error) {
	key = NormalizeKey(key)
	if !ValidFormat(s.prefix, key) {
		return OutcomeInvalidFormat, nil
	}

	activated, err := s.store.TryActivate(key, externalID, time.Now().Unix())
	if err != nil {
		return "", err
	}
	if activated {
		log.Info().Str("key", key).Str("external_id", externalID).Msg("license activated")
		return OutcomeActivated, nil
	}

	l, err := s.store.GetByKey(key)
	if err != nil {
		return "", err
	}
	switch {
	case l == nil:
		return OutcomeNotFound, nil
	case !l.IsActive:
		return OutcomeRevoked, nil
	case l.UsedByUserID == externalID:
		return OutcomeAlreadyActivatedBySameUser, nil
	default:
		return OutcomeAlreadyActivatedByOtherUser, nil
	}
}

func (s *Service) Revoke(key string) (Outcome, error) {
	key = NormalizeKey(key)
	if !ValidFormat(s.prefix, key) {
		return OutcomeInvalidFormat, nil
	}

	revoked, err := s.store.Revoke(key, time.Now().Unix())
	if err != nil {
		return "", err
	}
	if revoked {
		log.Info().Str("key", key).Msg("license revoked")
		return OutcomeRevoked, nil
	}

	l, err := s.store.GetByKey(key)
	if err != nil {
		return "", err
	}
	if l == nil {
		return OutcomeNotFound, nil
	}
	return OutcomeAlreadyRevoked, nil
}

type Status struct {
	Exists      bool   `json:"exists"`
	Active      bool   `json:"active"`
	Used        bool   `json:"used"`
	ActivatedAt *int64 `json:"activated_at,omitempty"`
	RevokedAt   *int64 `json:"revoked_at,omitempty"`
}

func (s *Service) Status(key string) (*Status, error) {
	key = NormalizeKey(key)
	if !ValidFormat(s.prefix, key) {
		return &Status{}, nil
	}

	l, err := s.store.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return &Status{}, nil
	}
	return &Status{
		Exists:      true,
		Active:      l.IsActive,
		Used:        l.Used(),
		ActivatedAt: l.ActivatedAt,
		RevokedAt:   l.RevokedAt,
	}, nil
}
