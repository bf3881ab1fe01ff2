package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"google.golang.org/api/idtoken"
)

var (
	// ErrInvalidToken is returned for ID tokens that fail verification.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrVerifierUnavailable is returned when sign-in is not configured.
	ErrVerifierUnavailable = errors.New("identity verification is not configured")
)

// Verifier checks an identity provider ID token.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleVerifier verifies Google ID tokens locally: signature against
// Google's cached public keys, audience and expiry.
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

// NewGoogleVerifier creates a verifier accepting tokens issued to clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		// Certificate fetch failures are not the token's fault.
		var urlErr *url.Error
		if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Identity{}, fmt.Errorf("fetching google signing keys: %w", err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !googleIssuers[payload.Issuer] {
		return Identity{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, payload.Issuer)
	}
	if payload.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	id := Identity{Subject: payload.Subject}
	id.Email, _ = payload.Claims["email"].(string)
	id.Name, _ = payload.Claims["name"].(string)
	return id, nil
}
