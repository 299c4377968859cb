package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"readhub/internal/account"
	"readhub/internal/auth"
	"readhub/internal/constants"
	"readhub/internal/models"
)

type AuthHandler struct {
	accounts *account.Service
}

func NewAuthHandler(accounts *account.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Nickname string `json:"nickname" validate:"required,min=2,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type OAuthLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type AuthResponse struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

type OAuthResponse struct {
	User      *models.User    `json:"user"`
	Tokens    *auth.TokenPair `json:"tokens"`
	IsNewUser bool            `json:"isNewUser"`
}

type TokensResponse struct {
	Tokens *auth.TokenPair `json:"tokens"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Nickname = strings.TrimSpace(req.Nickname)
	if !account.NicknameValid(req.Nickname) {
		badRequest(w, "Nickname may only contain letters, digits, and underscores")
		return
	}

	result, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.Nickname)
	if errors.Is(err, account.ErrConflict) {
		writeError(w, http.StatusConflict, constants.ErrCodeUserExists, "Email or nickname already in use")
		return
	}
	if err != nil {
		slog.Error("error registering account", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: result.User, Tokens: result.Tokens})
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := h.accounts.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if errors.Is(err, account.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, constants.ErrCodeInvalidCredentials, "Invalid email or password")
		return
	}
	if err != nil {
		slog.Error("error logging in", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: result.User, Tokens: result.Tokens})
}

// POST /api/v1/auth/oauth/{provider}
func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	var req OAuthLoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := h.accounts.OAuthLogin(r.Context(), provider, req.IDToken)
	if errors.Is(err, account.ErrUnknownProvider) {
		writeError(w, http.StatusBadRequest, constants.ErrCodeOAuthFailed, "Unknown identity provider")
		return
	}
	if errors.Is(err, account.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, constants.ErrCodeOAuthFailed, "Identity verification failed")
		return
	}
	if err != nil {
		slog.Error("error handling oauth login", "error", err, "provider", provider)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, OAuthResponse{
		User:      result.User,
		Tokens:    result.Tokens,
		IsNewUser: result.IsNewUser,
	})
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	tokens, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if errors.Is(err, account.ErrInvalidRefresh) {
		writeError(w, http.StatusUnauthorized, constants.ErrCodeInvalidRefreshToken, "Invalid or expired refresh token")
		return
	}
	if err != nil {
		slog.Error("error refreshing tokens", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, TokensResponse{Tokens: tokens})
}

// DELETE /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)
	if userID == "" {
		unauthorized(w, "User not found in context")
		return
	}

	if err := h.accounts.Logout(r.Context(), userID); err != nil {
		slog.Error("error logging out", "error", err, "user_id", userID)
		internalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
