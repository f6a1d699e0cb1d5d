package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// requestTimeout bounds the store and broker work done for one request.
const requestTimeout = 5 * time.Second

// AuthService is the part of the auth engine the HTTP layer drives.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (utils.AccessToken, error)
	Logout(ctx context.Context, refreshToken string, caller *model.Principal) error
	Profile(ctx context.Context, userID string) (model.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, upd auth.ProfileUpdate) (model.PublicUser, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	DeleteAccount(ctx context.Context, userID, password string) error
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type sessionResp struct {
	Success      bool             `json:"success"`
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

type accessResp struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

type userResp struct {
	Success bool             `json:"success"`
	User    model.PublicUser `json:"user"`
}

type messageResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func newSessionResp(s auth.Session) sessionResp {
	return sessionResp{
		Success:      true,
		User:         s.User,
		AccessToken:  s.AccessToken.Token,
		RefreshToken: s.RefreshToken.Raw, // raw back to the client, only the hash is stored
	}
}

// Register: create the account and return a session immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.svc.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newSessionResp(s))
}

// Login: verify credentials and return a new session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResp(s))
}

// Refresh: new access token for a valid refresh token. The refresh token
// is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	access, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessResp{Success: true, AccessToken: access.Token})
}

// Logout: revoke the refresh token. The bearer token is optional and only
// decides whether a logout event is emitted.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var caller *model.Principal
	if p, ok := middleware.PrincipalFrom(c); ok {
		caller = &p
	}
	if err := h.svc.Logout(ctx, req.RefreshToken, caller); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Success: true, Message: "Successfully logged out"})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.ErrTokenInvalid
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.Profile(ctx, p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResp{Success: true, User: u})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

var errBadBody = &auth.Error{Kind: auth.KindValidation, Message: "Invalid request body"}

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errBadBody
	}
	return c.Validate(dst)
}
