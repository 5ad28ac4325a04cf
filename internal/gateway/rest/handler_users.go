package rest

import (
	"net/http"

	"github.com/alakara/harvest/internal/identity"
	"github.com/alakara/harvest/internal/users"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAndValidate[users.RegisterRequest](r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	res, err := h.deps.Users.Register(r.Context(), *req)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeEnvelope(w, http.StatusCreated, "User registered successfully", res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAndValidate[users.LoginRequest](r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	res, err := h.deps.Users.Login(r.Context(), *req)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeEnvelope(w, http.StatusOK, "User logged in successfully", res)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.Users.Get(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "User not found")
		return
	}
	writeEnvelope(w, http.StatusOK, "User profile fetched successfully", u)
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAndValidate[users.UpdateRequest](r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	u, err := h.deps.Users.UpdateProfile(r.Context(), identity.UserIDFromContext(r.Context()), *req)
	if err != nil {
		writeServiceError(w, err, "User not found")
		return
	}
	writeEnvelope(w, http.StatusOK, "User profile updated successfully", u)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := decodePage(r, h.cfg.AdminPageLimit)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	res, err := h.deps.Users.List(r.Context(), page)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeEnvelope(w, http.StatusOK, "Users fetched successfully", res)
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.Users.VerifyEmail(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeEnvelope(w, http.StatusOK, "Email verified successfully", u)
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAndValidate[resendRequest](r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	if err := h.deps.Users.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, err, "User not found")
		return
	}
	writeEnvelope(w, http.StatusOK, "Verification email resent successfully", nil)
}
