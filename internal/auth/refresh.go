package auth

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// DefaultRefreshTTL is the lifetime of a refresh token.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// RefreshStore issues, validates and revokes opaque refresh tokens. Only
// the SHA-256 of a token is persisted, so the raw value handed to the
// client cannot be recovered from the store.
type RefreshStore struct {
	repo repository.TokenRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewRefreshStore(repo repository.TokenRepository, ttl time.Duration, now func() time.Time) *RefreshStore {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RefreshStore{repo: repo, ttl: ttl, now: now}
}

// Issue creates and persists a new token for userID.
func (s *RefreshStore) Issue(ctx context.Context, userID string) (utils.RefreshToken, error) {
	now := s.now().UTC()
	tok, err := utils.NewRefreshToken(s.ttl, now)
	if err != nil {
		return utils.RefreshToken{}, internal("generate refresh token", err)
	}
	rec := &model.RefreshToken{
		UserID:    userID,
		TokenHash: utils.HashRefreshRaw(tok.Raw),
		ExpiresAt: tok.Exp,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return utils.RefreshToken{}, internal("store refresh token", err)
	}
	return tok, nil
}

// Validate returns the owner of raw. Unknown, revoked and expired tokens
// all yield ErrTokenInvalid.
func (s *RefreshStore) Validate(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrTokenInvalid
	}
	rec, err := s.repo.FindByHash(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", internal("load refresh token", err)
	}
	if !rec.Valid(s.now()) {
		return "", ErrTokenInvalid
	}
	return rec.UserID, nil
}

// Revoke marks raw revoked. Revoking an unknown or already revoked token
// succeeds.
func (s *RefreshStore) Revoke(ctx context.Context, raw string) error {
	if err := s.repo.RevokeByHash(ctx, utils.HashRefreshRaw(raw), s.now().UTC()); err != nil {
		return internal("revoke refresh token", err)
	}
	return nil
}

// RevokeAll revokes every outstanding token of userID.
func (s *RefreshStore) RevokeAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID, s.now().UTC()); err != nil {
		return internal("revoke user refresh tokens", err)
	}
	return nil
}
