// Package auth implements the credential and token lifecycle: registration,
// login with lockout, access token refresh, logout and the self-service
// account operations. All state lives in the repositories; a Service is
// safe for concurrent use.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// AccessCodec issues and verifies stateless access tokens.
type AccessCodec interface {
	Issue(userID string) (utils.AccessToken, error)
	Verify(token string) (string, error)
}

// Notifier receives domain events. Publish must not block on the broker
// and must never fail the caller.
type Notifier interface {
	Publish(exchange, routingKey string, payload any)
}

// Session is the result of a successful register or login.
type Session struct {
	User         model.PublicUser
	AccessToken  utils.AccessToken
	RefreshToken utils.RefreshToken
}

// Service orchestrates the auth flows. The order of checks inside each
// operation is observable by clients and must not be rearranged.
type Service struct {
	users    repository.UserRepository
	refresh  *RefreshStore
	hasher   Hasher
	codec    AccessCodec
	notifier Notifier
	lockout  LockoutPolicy
	exchange string
	now      func() time.Time
	log      *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

func WithLockoutPolicy(p LockoutPolicy) Option { return func(s *Service) { s.lockout = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithExchange(name string) Option { return func(s *Service) { s.exchange = name } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// NewService wires the engine. refresh may share the clock passed through
// WithClock; notifier may be nil to disable events.
func NewService(users repository.UserRepository, refresh *RefreshStore, hasher Hasher, codec AccessCodec, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		users:    users,
		refresh:  refresh,
		hasher:   hasher,
		codec:    codec,
		notifier: notifier,
		lockout:  DefaultLockoutPolicy(),
		exchange: queue.Exchange,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Session{}, validation("Name, email and password are required")
	}
	if err := checkPasswordLength(password); err != nil {
		return Session{}, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return Session{}, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Session{}, internal("lookup email", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, internal("hash password", err)
	}

	now := s.now().UTC()
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, ErrConflict
		}
		return Session{}, internal("create user", err)
	}

	s.publish(queue.UserCreated, queue.UserCreatedEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	})

	return s.openSession(ctx, u)
}

// Login verifies credentials. A locked account is rejected before the
// password is looked at, so a locked caller learns nothing about it.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, internal("lookup user", err)
	}
	if !u.IsActive {
		return Session{}, ErrAccountDisabled
	}

	now := s.now().UTC()
	if s.lockout.IsLocked(u.LockoutState, now) {
		return Session{}, ErrAccountLocked
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		// read-modify-write: concurrent failures may undercount
		u.LockoutState = s.lockout.OnFailedAttempt(u.LockoutState, now)
		u.UpdatedAt = now
		if err := s.users.Save(ctx, u); err != nil {
			return Session{}, internal("record failed login", err)
		}
		s.log.Info("login failed",
			zap.String("user_id", u.ID),
			zap.Int("failed_attempts", u.FailedLoginAttempts),
			zap.Bool("locked", s.lockout.IsLocked(u.LockoutState, now)))
		return Session{}, ErrInvalidCredentials
	}

	u.LockoutState = s.lockout.OnSuccess(u.LockoutState)
	u.LastLogin = &now
	u.UpdatedAt = now
	if err := s.users.Save(ctx, u); err != nil {
		return Session{}, internal("record login", err)
	}

	s.publish(queue.UserLogin, queue.UserSessionEvent{UserID: u.ID, Timestamp: now})

	return s.openSession(ctx, u)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is left untouched and stays usable until logout or expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (utils.AccessToken, error) {
	userID, err := s.refresh.Validate(ctx, refreshToken)
	if err != nil {
		return utils.AccessToken{}, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.AccessToken{}, ErrNotFound
		}
		return utils.AccessToken{}, internal("load user", err)
	}
	if !u.IsActive {
		return utils.AccessToken{}, ErrAccountDisabled
	}

	access, err := s.codec.Issue(u.ID)
	if err != nil {
		return utils.AccessToken{}, internal("issue access token", err)
	}
	return access, nil
}

// Logout revokes refreshToken. It succeeds for unknown and already
// revoked tokens. The logout event is only emitted when the caller is
// known. Access tokens already issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, refreshToken string, caller *model.Principal) error {
	if strings.TrimSpace(refreshToken) == "" {
		return validation("Refresh token is required")
	}
	if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
		return err
	}
	if caller != nil {
		s.publish(queue.UserLogout, queue.UserSessionEvent{UserID: caller.UserID, Timestamp: s.now().UTC()})
	}
	return nil
}

// Authenticate resolves a bearer access token to the caller. It is the
// only place a Principal is built.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (model.Principal, error) {
	userID, err := s.codec.Verify(accessToken)
	if err != nil {
		return model.Principal{}, ErrTokenInvalid
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Principal{}, ErrTokenInvalid
		}
		return model.Principal{}, internal("load user", err)
	}
	if !u.IsActive {
		return model.Principal{}, ErrAccountDisabled
	}
	return model.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

func (s *Service) openSession(ctx context.Context, u *model.User) (Session, error) {
	access, err := s.codec.Issue(u.ID)
	if err != nil {
		return Session{}, internal("issue access token", err)
	}
	refresh, err := s.refresh.Issue(ctx, u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u.Public(), AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) publish(routingKey string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(s.exchange, routingKey, payload)
}

// checkPasswordLength rejects input the hasher cannot take, so an
// oversized password is a client error and never reaches bcrypt.
func checkPasswordLength(password string) error {
	if len(password) > utils.MaxPasswordBytes {
		return validation(fmt.Sprintf("Password must be at most %d bytes long", utils.MaxPasswordBytes))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
