package handler

import (
	"net/http"
	"strings"

	"github.com/mmstore/storefront/internal/domain/user"
)

// requireSession guards a route behind a valid bearer session token belonging
// to the logged-in user.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, prefix) {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		if err := h.users.Authenticate(strings.TrimPrefix(auth, prefix)); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	u, token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: u, Token: token})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	u, token, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: u, Token: token})
}

// logout ends the session and empties the cart. Order history stays, keyed by
// user id, and reattaches on the next login with the same email.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.users.Logout(r.Context())
	h.cart.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type profileRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), user.ProfileUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
