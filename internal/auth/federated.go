package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// federatedVerifyTimeout bounds a single remote ID token check.
const federatedVerifyTimeout = 5 * time.Second

// ErrIdentityRejected is returned when a provider refuses an ID token.
var ErrIdentityRejected = errors.New("invalid or expired ID token")

// Identity is what a federated provider vouches for.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
}

// IdentityVerifier validates an ID token issued by an external provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// GoogleVerifier validates Google Sign-In ID tokens for one OAuth client.
type GoogleVerifier struct {
	clientID  string
	validator *idtoken.Validator
}

// NewGoogleVerifier creates a verifier that accepts tokens minted for clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("google client ID is required")
	}
	validator, err := idtoken.NewValidator(ctx, option.WithoutAuthentication())
	if err != nil {
		return nil, fmt.Errorf("create google token validator: %w", err)
	}
	return &GoogleVerifier{clientID: clientID, validator: validator}, nil
}

// Verify checks signature, expiry and audience of a Google ID token.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrIdentityRejected
	}

	ctx, cancel := context.WithTimeout(ctx, federatedVerifyTimeout)
	defer cancel()

	payload, err := v.validator.Validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrIdentityRejected)
	}

	return &Identity{
		Provider:      "google",
		Subject:       payload.Subject,
		Email:         claimString(payload.Claims, "email"),
		EmailVerified: claimBool(payload.Claims, "email_verified"),
		FirstName:     claimString(payload.Claims, "given_name"),
		LastName:      claimString(payload.Claims, "family_name"),
	}, nil
}

// FirebaseVerifier validates Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier initializes the Firebase Admin SDK from a service account file.
func NewFirebaseVerifier(ctx context.Context, credentialsFile, projectID string) (*FirebaseVerifier, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := app.Auth(initCtx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify checks a Firebase ID token and returns the account it belongs to.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrIdentityRejected
	}

	ctx, cancel := context.WithTimeout(ctx, federatedVerifyTimeout)
	defer cancel()

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}
	if token.UID == "" {
		return nil, fmt.Errorf("%w: token missing user ID", ErrIdentityRejected)
	}

	first, last := splitName(claimString(token.Claims, "name"))
	return &Identity{
		Provider:      "firebase",
		Subject:       token.UID,
		Email:         claimString(token.Claims, "email"),
		EmailVerified: claimBool(token.Claims, "email_verified"),
		FirstName:     first,
		LastName:      last,
	}, nil
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func claimBool(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// splitName splits a display name at the first space.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}
