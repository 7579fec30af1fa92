package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GwangCheonLee/authcore/internal/credentials"
	"github.com/GwangCheonLee/authcore/internal/domain"
	"github.com/GwangCheonLee/authcore/internal/event"
	"github.com/GwangCheonLee/authcore/internal/oauth"
	"github.com/GwangCheonLee/authcore/internal/service"
	"github.com/GwangCheonLee/authcore/internal/token"
	"github.com/GwangCheonLee/authcore/internal/twofactor"
	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
	"github.com/GwangCheonLee/authcore/pkg/health"
	pkgkafka "github.com/GwangCheonLee/authcore/pkg/kafka"
)

// --- In-memory repository ---

type stubRepo struct {
	users  map[int64]*domain.User
	nextID int64
	getErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func (s *stubRepo) Create(_ context.Context, user *domain.User) error {
	for _, u := range s.users {
		if u.Email == user.Email {
			return apperrors.Conflict("email " + user.Email + " is already registered")
		}
	}
	user.ID = s.nextID
	s.nextID++
	s.users[user.ID] = user
	return nil
}

func (s *stubRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", "unknown")
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (s *stubRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return apperrors.NotFound("user", "unknown")
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *stubRepo) SetPasswordHash(_ context.Context, id int64, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user", "unknown")
	}
	u.PasswordHash = hash
	return nil
}

func (s *stubRepo) SetTwoFactorSecret(_ context.Context, id int64, secret string) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user", "unknown")
	}
	u.TwoFactorSecret = secret
	return nil
}

func (s *stubRepo) Deactivate(_ context.Context, id int64) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user", "unknown")
	}
	u.IsActive = false
	return nil
}

// --- In-memory session registry ---

type stubRegistry struct {
	sessions map[string]string
	downErr  error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{sessions: make(map[string]string)}
}

func registryKey(userID int64, typ token.Type) string {
	return string(typ) + ":" + strconv.FormatInt(userID, 10)
}

func (s *stubRegistry) Record(_ context.Context, userID int64, typ token.Type, tokenString string, _ time.Duration) error {
	if s.downErr != nil {
		return apperrors.StoreUnavailable(s.downErr)
	}
	s.sessions[registryKey(userID, typ)] = tokenString
	return nil
}

func (s *stubRegistry) Check(_ context.Context, userID int64, typ token.Type, tokenString string) error {
	if s.downErr != nil {
		return apperrors.StoreUnavailable(s.downErr)
	}
	if s.sessions[registryKey(userID, typ)] != tokenString {
		return apperrors.Unauthorized()
	}
	return nil
}

func (s *stubRegistry) Clear(_ context.Context, userID int64) error {
	delete(s.sessions, registryKey(userID, token.TypeAccess))
	delete(s.sessions, registryKey(userID, token.TypeRefresh))
	return nil
}

// --- Stub OAuth profile fetcher ---

type stubFetcher struct {
	profile *oauth.Profile
	err     error
}

func (s *stubFetcher) FetchProfile(_ context.Context, _, _ string) (*oauth.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

// --- No-op event publisher ---

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _ string, _ *pkgkafka.Event) error { return nil }

// --- Fixture ---

type serverFixture struct {
	handler  http.Handler
	repo     *stubRepo
	registry *stubRegistry
	fetcher  *stubFetcher
	issuer   *token.Issuer
	svc      *service.AuthService
}

func newServerFixture(t *testing.T, limitSessions bool) *serverFixture {
	t.Helper()

	repo := newStubRepo()
	registry := newStubRegistry()
	fetcher := &stubFetcher{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	issuer := token.NewIssuer("test-access-secret", "test-refresh-secret", 15*time.Minute, 168*time.Hour)

	svc := service.NewAuthService(
		repo,
		credentials.NewHasher(bcrypt.MinCost),
		issuer,
		twofactor.NewManager("authcore", 1),
		registry,
		fetcher,
		event.NewProducer(noopPublisher{}, logger),
		logger,
		limitSessions,
	)

	handler := NewRouter(svc, issuer, health.NewHandler(), logger, RouterConfig{
		Environment:      "development",
		RefreshTTL:       168 * time.Hour,
		OAuthRedirectURL: "https://app.example.com/oauth/done",
		CORS:             CORSConfig{Environment: "development"},
	})

	return &serverFixture{
		handler:  handler,
		repo:     repo,
		registry: registry,
		fetcher:  fetcher,
		issuer:   issuer,
		svc:      svc,
	}
}

// seedUser registers an account directly in the repository.
func (f *serverFixture) seedUser(t *testing.T, user *domain.User) *domain.User {
	t.Helper()
	require.NoError(t, f.repo.Create(context.Background(), user))
	return user
}

func hashedPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
