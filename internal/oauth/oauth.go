package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
	"github.com/GwangCheonLee/authcore/pkg/httpclient"
)

// Provider names accepted by the sign-in endpoint.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

const maxProfileBody = 1 << 20 // 1MB

// Profile is the normalized identity returned by a provider's userinfo
// endpoint. Email is the reconciliation key and is always set.
type Profile struct {
	Provider     string
	Email        string
	Nickname     string
	ProfileImage string
}

// Config holds the userinfo endpoints per provider. Overridable so tests
// can point at a local server.
type Config struct {
	GoogleUserInfoURL string
	GitHubUserInfoURL string
}

// DefaultConfig returns the real provider endpoints.
func DefaultConfig() Config {
	return Config{
		GoogleUserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		GitHubUserInfoURL: "https://api.github.com/user",
	}
}

// doer abstracts the HTTP client so the circuit-breaker wrapper and the
// plain client are interchangeable.
type doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

var _ doer = (*httpclient.CircuitBreakerClient)(nil)
var _ doer = (*httpclient.Client)(nil)

// Client fetches user profiles from OAuth providers using an access token
// obtained by the frontend.
type Client struct {
	http      doer
	endpoints map[string]string
}

// NewClient creates an OAuth profile client.
func NewClient(httpClient doer, cfg Config) *Client {
	return &Client{
		http: httpClient,
		endpoints: map[string]string{
			ProviderGoogle: cfg.GoogleUserInfoURL,
			ProviderGitHub: cfg.GitHubUserInfoURL,
		},
	}
}

// FetchProfile exchanges a provider access token for the user's profile.
// An unknown provider or a profile without an email is an input error;
// a rejected token maps to the generic unauthorized error.
func (c *Client) FetchProfile(ctx context.Context, provider, accessToken string) (*Profile, error) {
	endpoint, ok := c.endpoints[strings.ToLower(provider)]
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported oauth provider: %s", provider))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s profile: %w", provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, provider)
	}
	defer resp.Body.Close()

	profile, err := decodeProfile(provider, resp.Body)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s profile has no email address", provider))
	}
	return profile, nil
}

func decodeProfile(provider string, body io.Reader) (*Profile, error) {
	limited := io.LimitReader(body, maxProfileBody)

	switch provider {
	case ProviderGoogle:
		var raw struct {
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := json.NewDecoder(limited).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode google profile: %w", err)
		}
		return &Profile{
			Provider:     ProviderGoogle,
			Email:        raw.Email,
			Nickname:     raw.Name,
			ProfileImage: raw.Picture,
		}, nil
	case ProviderGitHub:
		var raw struct {
			Email     string `json:"email"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := json.NewDecoder(limited).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode github profile: %w", err)
		}
		nickname := raw.Name
		if nickname == "" {
			nickname = raw.Login
		}
		return &Profile{
			Provider:     ProviderGitHub,
			Email:        raw.Email,
			Nickname:     nickname,
			ProfileImage: raw.AvatarURL,
		}, nil
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported oauth provider: %s", provider))
	}
}
