package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/studytrackapp/studytrack-server/internal/auth"
	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/otp"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Metadata.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}

// ProvideOTPStore provides the signup one-time password cache.
func ProvideOTPStore(i do.Injector) (*otp.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return otp.New(otp.Config{TTL: cfg.OTP.TTL, Digits: cfg.OTP.Digits})
}

// IdentityVerifiers holds the optional federated login verifiers.
// A nil field means that login method is not configured.
type IdentityVerifiers struct {
	Google   auth.IdentityVerifier
	Firebase auth.IdentityVerifier
}

// ProvideIdentityVerifiers provides Google and Firebase verifiers when configured.
// A verifier that fails to initialize is logged and left disabled.
func ProvideIdentityVerifiers(i do.Injector) (*IdentityVerifiers, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx := context.Background()
	verifiers := &IdentityVerifiers{}

	if cfg.Google.ClientID != "" {
		v, err := auth.NewGoogleVerifier(ctx, cfg.Google.ClientID)
		if err != nil {
			log.Warn("Google login unavailable", "error", err)
		} else {
			verifiers.Google = v
			log.Info("Google login enabled")
		}
	}

	if cfg.Firebase.CredentialsFile != "" {
		v, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.ProjectID)
		if err != nil {
			log.Warn("Firebase login unavailable", "error", err)
		} else {
			verifiers.Firebase = v
			log.Info("Firebase login enabled", "project_id", cfg.Firebase.ProjectID)
		}
	}

	return verifiers, nil
}
