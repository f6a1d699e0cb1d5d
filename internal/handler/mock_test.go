package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

type mockService struct{ mock.Mock }

func (m *mockService) Register(ctx context.Context, name, email, password string) (auth.Session, error) {
	args := m.Called(ctx, name, email, password)
	return args.Get(0).(auth.Session), args.Error(1)
}

func (m *mockService) Login(ctx context.Context, email, password string) (auth.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.Session), args.Error(1)
}

func (m *mockService) Refresh(ctx context.Context, refreshToken string) (utils.AccessToken, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(utils.AccessToken), args.Error(1)
}

func (m *mockService) Logout(ctx context.Context, refreshToken string, caller *model.Principal) error {
	return m.Called(ctx, refreshToken, caller).Error(0)
}

func (m *mockService) Profile(ctx context.Context, userID string) (model.PublicUser, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.PublicUser), args.Error(1)
}

func (m *mockService) UpdateProfile(ctx context.Context, userID string, upd auth.ProfileUpdate) (model.PublicUser, error) {
	args := m.Called(ctx, userID, upd)
	return args.Get(0).(model.PublicUser), args.Error(1)
}

func (m *mockService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

func (m *mockService) DeleteAccount(ctx context.Context, userID, password string) error {
	return m.Called(ctx, userID, password).Error(0)
}
