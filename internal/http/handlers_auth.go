package http

import (
	"log/slog"
	"net/http"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

type registerRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Email        string `json:"email"`
	Whatsapp     string `json:"whatsapp"`
	Password     string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	Email        string    `json:"email"`
	Whatsapp     string    `json:"whatsapp"`
	CreatedAt    time.Time `json:"createdAt"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Organization: u.Organization,
		Email:        u.Email,
		Whatsapp:     u.Whatsapp,
		CreatedAt:    u.CreatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := s.repo.CreateUser(r.Context(), core.User{
		Name:         sanitizeInput(req.Name),
		Organization: sanitizeInput(req.Organization),
		Email:        req.Email,
		Whatsapp:     sanitizeInput(req.Whatsapp),
	}, hash)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Register failed", "error", err)
			respondError(w, status, "registration failed")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token generation failed", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, hash, err := s.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and wrong password
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.CheckPassword(hash, req.Password); err != nil {
		slog.WarnContext(r.Context(), "Failed login attempt",
			"user_id", user.ID,
			"client_ip", s.detector.ExtractClientIP(r))
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusForbidden, "account disabled")
		return
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token generation failed", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.repo.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	_, hash, err := s.repo.GetUserByEmail(r.Context(), user.Email)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	if err := auth.CheckPassword(hash, req.CurrentPassword); err != nil {
		respondError(w, http.StatusUnauthorized, "wrong password")
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.repo.UpdatePassword(r.Context(), userID, newHash); err != nil {
		slog.ErrorContext(r.Context(), "Password update failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "password update failed")
		return
	}

	slog.InfoContext(r.Context(), "Password changed", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
