package api

import (
	"errors"
	"log/slog"
	"net/http"

	"readhub/internal/account"
	"readhub/internal/models"
)

type UserHandler struct {
	accounts *account.Service
}

func NewUserHandler(accounts *account.Service) *UserHandler {
	return &UserHandler{accounts: accounts}
}

type UserResponse struct {
	User *models.User `json:"user"`
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	user, err := h.accounts.GetAccount(r.Context(), userID)
	if errors.Is(err, account.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

type UpdateFCMTokenRequest struct {
	FCMToken string `json:"fcmToken" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=android ios web"`
}

// PATCH /api/v1/users/me/fcm-token
func (h *UserHandler) UpdateFCMToken(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	var req UpdateFCMTokenRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.accounts.UpdatePushToken(r.Context(), userID, req.FCMToken, req.Platform); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			notFound(w, "User not found")
			return
		}
		slog.Error("error updating push token", "error", err, "user_id", userID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Push token updated"})
}
