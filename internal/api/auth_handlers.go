package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/farmerhub/marketplace-api/internal/models"
)

type authResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    *models.Account `json:"user,omitempty"`
	Token   string          `json:"token,omitempty"`
}

func (a *App) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.config.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SignupHandler handles POST /api/{role}/auth/signup
func (a *App) SignupHandler(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SignupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		account, err := a.svc.Accounts.Signup(r.Context(), role, req)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, authResponse{
			Success: true,
			Message: "Account created. Check your email for the verification code.",
			User:    account,
		})
	}
}

// LoginHandler handles POST /api/{role}/auth/login
func (a *App) LoginHandler(family models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		account, token, err := a.svc.Accounts.Login(r.Context(), family, req.Email, req.Password)
		if err != nil {
			handleError(w, r, err)
			return
		}

		a.setSessionCookie(w, token, a.tokens.TTL())
		writeJSON(w, http.StatusOK, authResponse{
			Success: true,
			Message: "Logged in successfully",
			User:    account,
			Token:   token,
		})
	}
}

// LogoutHandler handles POST /api/{role}/auth/logout
func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// VerifyEmailHandler handles POST /api/{role}/auth/verify-email
func (a *App) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	account, err := a.svc.Accounts.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Email verified successfully", User: account})
}

// ForgotPasswordHandler handles POST /api/{role}/auth/forgot-password
func (a *App) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	if err := a.svc.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset link sent to your email")
}

// ResetPasswordHandler handles POST /api/{role}/auth/reset-password[/{token}].
// A token in the path takes precedence over one in the body.
func (a *App) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if token := mux.Vars(r)["token"]; token != "" {
		req.Token = token
	}
	if req.Token == "" {
		handleError(w, r, badRequest("token is required"))
		return
	}

	if err := a.svc.Accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successful")
}

// CheckAuthHandler handles GET /api/{role}/auth/check-auth
func (a *App) CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
	account, err := a.svc.Accounts.CheckAuth(r.Context(), identity(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Authenticated", User: account})
}

// UpdateProfileHandler handles PUT /api/{role}/auth/profile
func (a *App) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	account, err := a.svc.Accounts.UpdateProfile(r.Context(), identity(r), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Profile updated", User: account})
}
