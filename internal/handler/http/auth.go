package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GwangCheonLee/authcore/internal/service"
	"github.com/GwangCheonLee/authcore/pkg/httputil"
	"github.com/GwangCheonLee/authcore/pkg/validator"
)

// refreshCookieName is the cookie carrying the refresh token.
const refreshCookieName = "refresh_token"

// defaultQRSize is the QR code edge length in pixels when the client does
// not ask for one.
const defaultQRSize = 256

// AuthHandler handles HTTP requests for authentication endpoints.
type AuthHandler struct {
	service     *service.AuthService
	logger      *slog.Logger
	environment string
	refreshTTL  time.Duration
	redirectURL string
}

// NewAuthHandler creates a new auth HTTP handler. redirectURL is where the
// OAuth callback sends the browser when the caller does not supply one.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, environment string, refreshTTL time.Duration, redirectURL string) *AuthHandler {
	return &AuthHandler{
		service:     svc,
		logger:      logger,
		environment: environment,
		refreshTTL:  refreshTTL,
		redirectURL: redirectURL,
	}
}

// --- Request DTOs ---

// SignUpRequest is the JSON request body for account registration.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Nickname string `json:"nickname" validate:"required,min=1,max=100"`
}

// SignInRequest is the JSON request body for a password sign-in. Code is the
// TOTP code, required only for accounts with two-factor enabled.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// --- Response types ---

// SignInResponse carries the account view and the issued tokens.
type SignInResponse struct {
	User         any    `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// --- Handlers ---

// SignUp handles POST /api/v1/auth/sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req SignUpRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.SignUp(r.Context(), service.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: user})
}

// SignIn handles POST /api/v1/auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req SignInRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.service.SignIn(r.Context(), service.SignInInput{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.Code,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SignInResponse{
			User:         user,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
		},
	})
}

// Refresh handles POST /api/v1/auth/refresh. The refresh token is read from
// the cookie set at sign-in, with a bearer Authorization header as fallback
// for non-browser clients.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := ""
	if c, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = c.Value
	}
	if refreshToken == "" {
		refreshToken = bearerToken(r)
	}

	accessToken, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"access_token": accessToken},
	})
}

// ChangePassword handles PATCH /api/v1/auth/password. The current password
// must verify even though the caller already holds a valid session.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ChangePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	err := h.service.ChangePassword(r.Context(), user.ID, service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "password changed"},
	})
}

// OAuthCallback handles GET /api/v1/auth/oauth/{provider}/callback. The
// provider access token arrives as a query parameter from the frontend's
// OAuth flow; on success the browser is redirected back with a fresh access
// token and the refresh cookie set.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	providerToken := r.URL.Query().Get("access_token")

	_, tokens, err := h.service.OAuthSignIn(r.Context(), provider, providerToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)

	target := r.URL.Query().Get("redirect")
	if target == "" {
		target = h.redirectURL
	}

	u, err := url.Parse(target)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	q := u.Query()
	q.Set("access_token", tokens.AccessToken)
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
}

// GenerateTwoFactor handles POST /api/v1/auth/two-factor. Requires an
// authenticated user; the new secret takes effect on the next sign-in.
func (h *AuthHandler) GenerateTwoFactor(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	secret, err := h.service.GenerateTwoFactorSecret(r.Context(), user.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: secret})
}

// TwoFactorQR handles GET /api/v1/auth/two-factor/qr, rendering the
// authenticated user's provisioning URI as a PNG.
func (h *AuthHandler) TwoFactorQR(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 64 || parsed > 1024 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "size must be between 64 and 1024"},
			})
			return
		}
		size = parsed
	}

	png, err := h.service.TwoFactorQRCode(r.Context(), user.ID, size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// setRefreshCookie stores the refresh token in an HttpOnly cookie scoped to
// the whole site. Secure is dropped only in development so local HTTP
// frontends can sign in.
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.environment != "development",
		SameSite: http.SameSiteStrictMode,
	})
}
