package handlers

import (
	"net/http"

	"hirelane/internal/auth"
	"hirelane/pkg/api"
)

// RequestOTP handles POST /auth/otp.
func (h *Handlers) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req api.OTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	ttl, err := h.auth.RequestCode(r.Context(), req.Phone)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "OTP sent successfully", api.OTPResponse{
		Phone:     req.Phone,
		ExpiresIn: int(ttl.Seconds()),
	})
}

// VerifyOTP handles POST /auth/verify. It logs in, registering the phone on
// first use, and returns a fresh API token.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.auth.Login(r.Context(), auth.LoginInput{
		Phone: req.Phone,
		Code:  req.OTP,
		Role:  req.Role,
		Name:  req.Name,
	})
	if err != nil {
		h.httpError(w, err)
		return
	}

	status, msg := http.StatusOK, "Login successful"
	if sess.Created {
		status, msg = http.StatusCreated, "Registration successful"
	}
	h.respond(w, status, msg, sess)
}

// Me handles GET /auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), principal(r))
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "", user)
}

// Logout handles POST /auth/logout. The current token stops working.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), principal(r)); err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "Logged out", nil)
}
