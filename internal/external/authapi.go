package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"qrfeedback/internal/types"
)

// ProfileEnsurer provisions a local profile row for an authenticated user.
// Implemented by db.ProfileRepository.
type ProfileEnsurer interface {
	Ensure(ctx context.Context, id, email, fullName string) error
}

// IdentityClientConfig holds the configuration for creating an IdentityClient.
type IdentityClientConfig struct {
	BaseURL string
	APIKey  string
	Logger  *slog.Logger
}

// IdentityClient resolves bearer tokens against the hosted auth provider's
// user endpoint. It implements core.Authenticator. On a successful resolve
// it also ensures a local profile row exists, so first-time users get a
// free-plan profile transparently.
type IdentityClient struct {
	base     *BaseClient
	baseURL  string
	apiKey   string
	profiles ProfileEnsurer
	logger   *slog.Logger
}

// NewIdentityClient creates a new IdentityClient. profiles may be nil, in
// which case profile provisioning is skipped.
func NewIdentityClient(httpClient *http.Client, profiles ProfileEnsurer, cfg IdentityClientConfig) *IdentityClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"auth",
		RetryPolicy{
			MaxRetries: 1,
			MinWait:    200 * time.Millisecond,
			MaxWait:    time.Second,
		},
		"QRFeedback/1.0",
	)

	return &IdentityClient{
		base:     base,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		profiles: profiles,
		logger:   logger,
	}
}

// authUser is the subset of the provider's user payload the service needs.
type authUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

// ResolveToken validates the bearer token with the auth provider and returns
// the actor it belongs to.
func (c *IdentityClient) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build auth request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.base.Do(req)
	if err != nil {
		if appErr, ok := err.(*types.AppError); ok {
			return nil, appErr
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamAuth, "auth provider request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "token rejected by auth provider", nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, types.NewAppError(types.ErrCodeAuthUserNotFound, "no user for token", nil)
	default:
		return nil, types.NewAppError(
			types.ErrCodeUpstreamAuth,
			fmt.Sprintf("auth provider returned %d", resp.StatusCode),
			nil,
		)
	}

	var user authUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamAuth, "failed to decode auth provider response", err)
	}
	if user.ID == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "auth provider returned empty user", nil)
	}

	if c.profiles != nil {
		if err := c.profiles.Ensure(ctx, user.ID, user.Email, user.UserMetadata.FullName); err != nil {
			// The request can proceed on the token alone; provisioning will
			// be retried on the next request.
			c.logger.WarnContext(ctx, "failed to provision profile",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	return &types.Actor{UserID: user.ID, Email: user.Email}, nil
}
