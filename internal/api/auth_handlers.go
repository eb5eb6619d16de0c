package api

import (
	"net/http"
	"time"

	"github.com/example/bazaar/internal/api/middleware"
	"github.com/example/bazaar/internal/auth"
	"github.com/example/bazaar/internal/domain/user"
	"go.uber.org/zap"
)

const refreshCookiePath = "/auth/refresh"

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	users         *user.Service
	jwtService    *auth.JWTService
	secureCookies bool
	logger        *zap.Logger
}

func NewAuthHandlers(users *user.Service, jwtService *auth.JWTService, secureCookies bool, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		users:         users,
		jwtService:    jwtService,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the access token too, for clients that send it as a
// bearer header instead of the cookie.
type AuthResponse struct {
	User        *user.User `json:"user"`
	AccessToken string     `json:"accessToken,omitempty"`
	Message     string     `json:"message,omitempty"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Register(r.Context(), req.Email, req.Password, req.Name, user.Role(req.Role))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	token, err := h.setAuthCookies(w, r, u)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, AuthResponse{User: u, AccessToken: token, Message: "Registration successful"})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	token, err := h.setAuthCookies(w, r, u)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: u, AccessToken: token, Message: "Login successful"})
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Refresh trades a valid refresh cookie for a new token pair. The role is
// reloaded so a stale claim never survives a refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.RefreshTokenCookie)
	if err != nil {
		respondJSONError(w, http.StatusUnauthorized, "unauthorized", "no refresh token")
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(cookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondError(w, h.logger, err)
		return
	}

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, http.StatusUnauthorized, "unauthorized", "user not found")
		return
	}

	token, err := h.setAuthCookies(w, r, u)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: u, AccessToken: token, Message: "Token refreshed"})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())
	u, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, u *user.User) (string, error) {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return "", err
	}
	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return "", err
	}

	secure := h.secureCookies || r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    refreshToken,
		Path:     refreshCookiePath,
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return accessToken, nil
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
}
