package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
)

var (
	errEmailInUse      = &Error{Kind: KindConflict, Message: "Email is already in use"}
	errCurrentPassword = &Error{Kind: KindInvalidCredentials, Message: "Current password is incorrect"}
)

// ProfileUpdate lists the fields a user may change on their own account.
// Nil fields are left alone.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// Profile returns the public view of the account.
func (s *Service) Profile(ctx context.Context, userID string) (model.PublicUser, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

// UpdateProfile applies upd and publishes the changed fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (model.PublicUser, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}

	ev := queue.UserUpdatedEvent{UserID: u.ID}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return model.PublicUser{}, validation("Name cannot be empty")
		}
		if name != u.Name {
			u.Name = name
			ev.Name = &name
		}
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return model.PublicUser{}, validation("Email cannot be empty")
		}
		if email != u.Email {
			other, err := s.users.FindByEmail(ctx, email)
			switch {
			case err == nil && other.ID != u.ID:
				return model.PublicUser{}, errEmailInUse
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return model.PublicUser{}, internal("lookup email", err)
			}
			u.Email = email
			ev.Email = &email
		}
	}
	if ev.Name == nil && ev.Email == nil {
		return u.Public(), nil
	}

	u.UpdatedAt = s.now().UTC()
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.PublicUser{}, errEmailInUse
		}
		return model.PublicUser{}, internal("save user", err)
	}

	ev.UpdatedAt = u.UpdatedAt
	s.publish(queue.UserUpdated, ev)
	return u.Public(), nil
}

// ChangePassword replaces the password after checking the current one.
// Every refresh token of the user is revoked so other sessions have to
// log in again.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if next == "" {
		return validation("New password is required")
	}
	if err := checkPasswordLength(next); err != nil {
		return err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return errCurrentPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return internal("hash password", err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Save(ctx, u); err != nil {
		return internal("save user", err)
	}
	if err := s.refresh.RevokeAll(ctx, u.ID); err != nil {
		return err
	}

	s.publish(queue.UserPasswordChanged, queue.PasswordChangedEvent{UserID: u.ID, UpdatedAt: u.UpdatedAt})
	return nil
}

// DeleteAccount removes the account after the password is confirmed.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return errCurrentPassword
	}

	if err := s.refresh.RevokeAll(ctx, u.ID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return internal("delete user", err)
	}

	s.publish(queue.UserDeleted, queue.UserDeletedEvent{UserID: u.ID, Email: u.Email, DeletedAt: s.now().UTC()})
	return nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, internal("load user", err)
	}
	return u, nil
}
