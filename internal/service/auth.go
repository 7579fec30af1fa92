package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GwangCheonLee/authcore/internal/credentials"
	"github.com/GwangCheonLee/authcore/internal/domain"
	"github.com/GwangCheonLee/authcore/internal/event"
	"github.com/GwangCheonLee/authcore/internal/oauth"
	"github.com/GwangCheonLee/authcore/internal/repository"
	"github.com/GwangCheonLee/authcore/internal/token"
	"github.com/GwangCheonLee/authcore/internal/twofactor"
	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
)

// SessionRegistry records and validates the single active session per user
// and token type.
type SessionRegistry interface {
	Record(ctx context.Context, userID int64, typ token.Type, tokenString string, ttl time.Duration) error
	Check(ctx context.Context, userID int64, typ token.Type, tokenString string) error
	Clear(ctx context.Context, userID int64) error
}

// ProfileFetcher resolves an OAuth provider access token to a user profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, provider, accessToken string) (*oauth.Profile, error)
}

// AuthService implements the business logic for account and session
// operations.
type AuthService struct {
	userRepo      repository.UserRepository
	hasher        *credentials.Hasher
	issuer        *token.Issuer
	twoFactor     *twofactor.Manager
	sessions      SessionRegistry
	oauthClient   ProfileFetcher
	producer      *event.Producer
	logger        *slog.Logger
	limitSessions bool
}

// NewAuthService creates the auth service. When limitSessions is true each
// successful sign-in supersedes the user's previous session.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher *credentials.Hasher,
	issuer *token.Issuer,
	twoFactor *twofactor.Manager,
	sessions SessionRegistry,
	oauthClient ProfileFetcher,
	producer *event.Producer,
	logger *slog.Logger,
	limitSessions bool,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		hasher:        hasher,
		issuer:        issuer,
		twoFactor:     twoFactor,
		sessions:      sessions,
		oauthClient:   oauthClient,
		producer:      producer,
		logger:        logger,
		limitSessions: limitSessions,
	}
}

// SignUpInput holds the parameters for registering a new account.
type SignUpInput struct {
	Email    string
	Password string
	Nickname string
}

// SignInInput holds the parameters for a password sign-in. TwoFactorCode is
// empty on the first attempt; accounts with two-factor enabled must retry
// with a code.
type SignInInput struct {
	Email         string
	Password      string
	TwoFactorCode string
}

// SignUp registers a new account with a bcrypt-hashed password.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*domain.User, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Nickname == "" {
		return nil, apperrors.InvalidInput("nickname is required")
	}
	if err := credentials.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		Nickname:     input.Nickname,
		Roles:        []string{domain.RoleUser},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.producer.UserRegistered(ctx, user)

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// SignIn authenticates with email and password, returning the account and a
// token pair. Unknown email, wrong password, a deactivated account, and an
// OAuth-only account all map to the same generic unauthorized error.
func (s *AuthService) SignIn(ctx context.Context, input SignInInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized()
		}
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	if !user.IsActive {
		return nil, nil, apperrors.Unauthorized()
	}

	// OAuth-only accounts have an empty hash; Verify rejects them with the
	// same generic error as a wrong password.
	if err := s.hasher.Verify(user.PasswordHash, input.Password); err != nil {
		return nil, nil, err
	}

	if user.TwoFactorEnabled() {
		if input.TwoFactorCode == "" {
			return nil, nil, apperrors.TwoFactorRequired()
		}
		if !s.twoFactor.Verify(user.TwoFactorSecret, input.TwoFactorCode) {
			return nil, nil, apperrors.TwoFactorInvalid()
		}
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.producer.UserSignedIn(ctx, user, event.MethodPassword)

	s.logger.InfoContext(ctx, "user signed in",
		slog.Int64("user_id", user.ID),
		slog.String("method", event.MethodPassword),
	)

	return user, tokens, nil
}

// OAuthSignIn exchanges a provider access token for a local session,
// creating the account on first sign-in. Accounts are reconciled by email.
func (s *AuthService) OAuthSignIn(ctx context.Context, provider, providerToken string) (*domain.User, *domain.TokenPair, error) {
	if providerToken == "" {
		return nil, nil, apperrors.InvalidInput("provider access token is required")
	}

	profile, err := s.oauthClient.FetchProfile(ctx, provider, providerToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if !user.IsActive {
			return nil, nil, apperrors.Unauthorized()
		}
		if s.reconcileProfile(user, profile) {
			if err := s.userRepo.Update(ctx, user); err != nil {
				s.logger.ErrorContext(ctx, "failed to update oauth profile",
					slog.Int64("user_id", user.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	case errors.Is(err, apperrors.ErrNotFound):
		now := time.Now().UTC()
		user = &domain.User{
			Email:         profile.Email,
			Nickname:      profile.Nickname,
			Roles:         []string{domain.RoleUser},
			OAuthProvider: profile.Provider,
			ProfileImage:  profile.ProfileImage,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("create oauth user: %w", err)
		}
		s.producer.UserRegistered(ctx, user)
	default:
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.producer.UserSignedIn(ctx, user, event.MethodOAuth)

	s.logger.InfoContext(ctx, "user signed in",
		slog.Int64("user_id", user.ID),
		slog.String("method", event.MethodOAuth),
		slog.String("provider", profile.Provider),
	)

	return user, tokens, nil
}

// reconcileProfile copies provider data onto an existing account and reports
// whether anything changed.
func (s *AuthService) reconcileProfile(user *domain.User, profile *oauth.Profile) bool {
	changed := false
	if user.OAuthProvider != profile.Provider {
		user.OAuthProvider = profile.Provider
		changed = true
	}
	if profile.ProfileImage != "" && user.ProfileImage != profile.ProfileImage {
		user.ProfileImage = profile.ProfileImage
		changed = true
	}
	return changed
}

// ChangePasswordInput holds the parameters for a password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ChangePassword verifies the account's current password and stores a hash of
// the new one. OAuth-only accounts have no password, so verification fails
// with the same generic unauthorized error as a wrong password. Existing
// sessions stay valid; only future sign-ins need the new password.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, input ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Verify(user.PasswordHash, input.CurrentPassword); err != nil {
		return err
	}
	if err := credentials.ValidatePassword(input.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("hash password: %w", err))
	}
	if err := s.userRepo.SetPasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.Int64("user_id", userID),
	)

	return nil
}

// Refresh validates a refresh token and issues a new access token. The
// refresh token itself is not rotated; it stays valid until it expires or is
// superseded by a new sign-in.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	if s.limitSessions {
		if err := s.sessions.Check(ctx, claims.User.ID, token.TypeRefresh, refreshToken); err != nil {
			return "", err
		}
	}

	user, err := s.userRepo.GetByID(ctx, claims.User.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthorized()
		}
		return "", fmt.Errorf("get user for refresh: %w", err)
	}
	if !user.IsActive {
		return "", apperrors.Unauthorized()
	}

	accessToken, err := s.issuer.IssueAccess(user)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}

	if s.limitSessions {
		if err := s.sessions.Record(ctx, user.ID, token.TypeAccess, accessToken, s.issuer.AccessTTL()); err != nil {
			return "", err
		}
	}

	s.logger.InfoContext(ctx, "access token refreshed",
		slog.Int64("user_id", user.ID),
	)

	return accessToken, nil
}

// GenerateTwoFactorSecret provisions a fresh TOTP secret for the account and
// activates it immediately. Regenerating replaces any previous secret.
func (s *AuthService) GenerateTwoFactorSecret(ctx context.Context, userID int64) (*twofactor.Secret, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	secret, err := s.twoFactor.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate two-factor secret: %w", err)
	}

	if err := s.userRepo.SetTwoFactorSecret(ctx, userID, secret.Secret); err != nil {
		return nil, fmt.Errorf("store two-factor secret: %w", err)
	}

	s.producer.TwoFactorEnabled(ctx, userID)

	s.logger.InfoContext(ctx, "two-factor enabled",
		slog.Int64("user_id", userID),
	)

	return secret, nil
}

// TwoFactorQRCode renders the account's TOTP provisioning URI as a PNG.
func (s *AuthService) TwoFactorQRCode(ctx context.Context, userID int64, size int) ([]byte, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled() {
		return nil, apperrors.InvalidInput("two-factor authentication is not enabled")
	}

	uri := s.twoFactor.ProvisioningURI(user.TwoFactorSecret, user.Email)
	png, err := s.twoFactor.QRCode(uri, size)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}

// GetUser returns the account with the given ID.
func (s *AuthService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// DeactivateUser disables the account and revokes its active sessions.
func (s *AuthService) DeactivateUser(ctx context.Context, id int64) error {
	if err := s.userRepo.Deactivate(ctx, id); err != nil {
		return err
	}

	if err := s.sessions.Clear(ctx, id); err != nil {
		// The account is already inactive so its tokens no longer pass the
		// guards; a failed revocation is not fatal.
		s.logger.ErrorContext(ctx, "failed to clear sessions",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.producer.UserDeactivated(ctx, id)

	s.logger.InfoContext(ctx, "user deactivated",
		slog.Int64("user_id", id),
	)

	return nil
}

// CheckSession verifies that the presented token is the user's active one.
// Used by the request guards; a no-op when session limiting is disabled.
func (s *AuthService) CheckSession(ctx context.Context, userID int64, typ token.Type, tokenString string) error {
	if !s.limitSessions {
		return nil
	}
	return s.sessions.Check(ctx, userID, typ, tokenString)
}

// issueTokens creates an access and refresh pair and, when limiting is
// enabled, records both as the user's only active session. A store failure
// fails the sign-in rather than leaving an unregistered session in the wild.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.issuer.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.issuer.IssueRefresh(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if s.limitSessions {
		if err := s.sessions.Record(ctx, user.ID, token.TypeAccess, accessToken, s.issuer.AccessTTL()); err != nil {
			return nil, err
		}
		if err := s.sessions.Record(ctx, user.ID, token.TypeRefresh, refreshToken, s.issuer.RefreshTTL()); err != nil {
			return nil, err
		}
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
