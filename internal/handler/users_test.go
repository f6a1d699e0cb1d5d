package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/auth"
)

func TestUpdateMe(t *testing.T) {
	svc := new(mockService)
	renamed := ada
	renamed.Name = "Countess"
	svc.On("UpdateProfile", ctxArg, "u1", mock.MatchedBy(func(u auth.ProfileUpdate) bool {
		return u.Name != nil && *u.Name == "Countess" && u.Email == nil
	})).Return(renamed, nil)
	e := newServer(svc)

	rec, body := do(e, http.MethodPut, "/users/me", `{"name":"Countess"}`, "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Countess", body["user"].(map[string]any)["name"])

	rec, body = do(e, http.MethodPut, "/users/me", `{"email":"not-an-email"}`, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please include a valid email", body["message"])

	rec, _ = do(e, http.MethodPut, "/users/me", `{"name":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNumberOfCalls(t, "UpdateProfile", 1)
}

func TestUpdateMe_EmailTaken(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateProfile", ctxArg, "u1", mock.Anything).
		Return(ada, &auth.Error{Kind: auth.KindConflict, Message: "Email is already in use"})

	rec, body := do(newServer(svc), http.MethodPut, "/users/me", `{"email":"grace@example.com"}`, "good")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email is already in use", body["message"])
}

func TestChangePassword(t *testing.T) {
	svc := new(mockService)
	svc.On("ChangePassword", ctxArg, "u1", "Secret1!", "Secret2!").Return(nil)
	svc.On("ChangePassword", ctxArg, "u1", "wrong", "Secret2!").
		Return(&auth.Error{Kind: auth.KindInvalidCredentials, Message: "Current password is incorrect"})
	e := newServer(svc)

	rec, body := do(e, http.MethodPut, "/users/me/password", `{"currentPassword":"Secret1!","newPassword":"Secret2!"}`, "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password updated successfully", body["message"])

	rec, body = do(e, http.MethodPut, "/users/me/password", `{"currentPassword":"wrong","newPassword":"Secret2!"}`, "good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Current password is incorrect", body["message"])

	rec, body = do(e, http.MethodPut, "/users/me/password", `{"currentPassword":"Secret1!","newPassword":"short"}`, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "New password must be at least 8 characters long", body["message"])

	rec, body = do(e, http.MethodPut, "/users/me/password", `{"currentPassword":"Secret1!","newPassword":"`+strings.Repeat("é", 40)+`"}`, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "New password must be at most 72 bytes long", body["message"])
}

func TestDeleteMe(t *testing.T) {
	svc := new(mockService)
	svc.On("DeleteAccount", ctxArg, "u1", "Secret1!").Return(nil)
	e := newServer(svc)

	rec, body := do(e, http.MethodDelete, "/users/me", `{"password":"Secret1!"}`, "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	rec, body = do(e, http.MethodDelete, "/users/me", `{}`, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password is required", body["message"])
	svc.AssertExpectations(t)
}
