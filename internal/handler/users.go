package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/middleware"
)

// UserHandler serves the self-service /api/users/me routes. Every route
// sits behind RequireAuth.
type UserHandler struct {
	svc AuthService
}

func NewUserHandler(svc AuthService) *UserHandler {
	return &UserHandler{svc: svc}
}

type updateProfileReq struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=100"`
	Email *string `json:"email" validate:"omitnil,email"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,maxbytes=72"`
}

type deleteAccountReq struct {
	Password string `json:"password" validate:"required"`
}

// UpdateMe changes name and/or email.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.ErrTokenInvalid
	}
	var req updateProfileReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.UpdateProfile(ctx, p.UserID, auth.ProfileUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResp{Success: true, User: u})
}

// ChangePassword requires the current password and signs out every
// other session.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.ErrTokenInvalid
	}
	var req changePasswordReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.ChangePassword(ctx, p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Success: true, Message: "Password updated successfully"})
}

// DeleteMe removes the caller's account after confirming the password.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.ErrTokenInvalid
	}
	var req deleteAccountReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.DeleteAccount(ctx, p.UserID, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Success: true, Message: "User deleted successfully"})
}
