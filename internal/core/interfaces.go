package core

import (
	"context"

	"qrfeedback/internal/types"
)

// Authenticator decouples the HTTP layer from the hosted identity provider,
// allowing for easy mocking in tests.
type Authenticator interface {
	// ResolveToken verifies a bearer token and returns the Actor it belongs to.
	//
	// Distinct Error Codes:
	// - Return ErrCodeAuthTokenInvalid if the token is malformed, rejected, or expired.
	// - Return ErrCodeAuthUserNotFound if the token verifies but no account exists.
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}
