package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GwangCheonLee/authcore/internal/domain"
	"github.com/GwangCheonLee/authcore/internal/service"
	"github.com/GwangCheonLee/authcore/internal/token"
	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
	"github.com/GwangCheonLee/authcore/pkg/httputil"
	"github.com/GwangCheonLee/authcore/pkg/middleware"
)

type contextKey string

const userContextKey contextKey = "current_user"

// CurrentUser returns the authenticated account stored by the access guard,
// or nil outside a guarded route.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

// bearerToken extracts the token from a Bearer Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Guard authenticates requests and enforces role and ownership policies.
// The account is loaded fresh on every request, so role changes and
// deactivation take effect without waiting for tokens to expire.
type Guard struct {
	issuer  *token.Issuer
	service *service.AuthService
	logger  *slog.Logger
}

// NewGuard creates the request guard.
func NewGuard(issuer *token.Issuer, svc *service.AuthService, logger *slog.Logger) *Guard {
	return &Guard{issuer: issuer, service: svc, logger: logger}
}

// Access verifies the bearer access token, checks it against the session
// registry when limiting is enabled, and loads the account into the request
// context. A store outage surfaces as 503, never as a silent pass.
func (g *Guard) Access(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "missing or malformed authorization header"},
			})
			return
		}

		claims, err := g.issuer.VerifyAccess(tokenString)
		if err != nil {
			httputil.WriteError(w, r, err, g.logger)
			return
		}

		if err := g.service.CheckSession(r.Context(), claims.User.ID, token.TypeAccess, tokenString); err != nil {
			httputil.WriteError(w, r, err, g.logger)
			return
		}

		user, err := g.service.GetUser(r.Context(), claims.User.ID)
		if err != nil {
			// A vanished account is an auth failure; anything else is an
			// infrastructure problem and must not masquerade as one.
			if errors.Is(err, apperrors.ErrNotFound) {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid credentials"},
				})
				return
			}
			httputil.WriteError(w, r, err, g.logger)
			return
		}
		if !user.IsActive {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid credentials"},
			})
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = middleware.WithUserID(ctx, strconv.FormatInt(user.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose account does not carry the given role.
// Mount after Access.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil || !user.HasRole(role) {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), slog.Default())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership allows admins through and everyone else only when the
// {id} route parameter names their own account. A missing parameter is a
// request error regardless of role. Mount after Access.
func RequireOwnership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())
		if user == nil {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
			})
			return
		}

		rawID := chi.URLParam(r, "id")
		if rawID == "" {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "missing id parameter"},
			})
			return
		}

		if !user.HasRole(domain.RoleAdmin) {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil || id != user.ID {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), slog.Default())
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
