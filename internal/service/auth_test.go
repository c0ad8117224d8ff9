package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studytrackapp/studytrack-server/internal/auth"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/mail"
	"github.com/studytrackapp/studytrack-server/internal/otp"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/store/sqlite"
)

var cheapPasswordParams = auth.PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type capturingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (c *capturingSender) Send(_ context.Context, msg mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *capturingSender) last() mail.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[len(c.sent)-1]
}

type fakeVerifier struct {
	identity *auth.Identity
	err      error
}

func (f *fakeVerifier) Verify(context.Context, string) (*auth.Identity, error) {
	return f.identity, f.err
}

type authEnv struct {
	store    store.Store
	auth     *AuthService
	admin    *AdminService
	sessions *SessionService
	otp      *otp.Store
	mailer   *capturingSender
	google   *fakeVerifier
	events   *recordingEmitter
}

func setupAuthTest(t *testing.T) *authEnv {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tokens, err := auth.NewTokenService(make([]byte, 32), 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	codes, err := otp.New(otp.Config{TTL: 5 * time.Minute, Digits: 6})
	require.NoError(t, err)
	t.Cleanup(codes.Close)

	logger := slog.New(slog.DiscardHandler)
	events := &recordingEmitter{}
	sessions := NewSessionService(s, tokens, nil, logger)
	mailer := &capturingSender{}
	google := &fakeVerifier{}

	return &authEnv{
		store:    s,
		sessions: sessions,
		otp:      codes,
		mailer:   mailer,
		google:   google,
		events:   events,
		admin:    NewAdminService(s, sessions, events, logger),
		auth: NewAuthService(AuthDeps{
			Store:    s,
			Sessions: sessions,
			Tokens:   tokens,
			Hasher:   auth.NewPasswordHasher(cheapPasswordParams),
			OTP:      codes,
			Mailer:   mailer,
			Google:   google,
			Logger:   logger,
		}),
	}
}

func (e *authEnv) signup(t *testing.T, email, password string) *AuthResponse {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.auth.SendOTP(ctx, SendOTPRequest{Email: email}))

	code, ok := otpFromMail(e.mailer.last())
	require.True(t, ok)

	resp, err := e.auth.Signup(ctx, SignupRequest{
		Email: email, OTP: code, Password: password, FirstName: "Ada", LastName: "Lovelace",
	}, ClientInfo{})
	require.NoError(t, err)
	return resp
}

// otpFromMail pulls the first run of six digits out of the plain-text body.
func otpFromMail(msg mail.Message) (string, bool) {
	run := 0
	for i := 0; i < len(msg.Text); i++ {
		if msg.Text[i] >= '0' && msg.Text[i] <= '9' {
			run++
			if run == 6 {
				return msg.Text[i-5 : i+1], true
			}
			continue
		}
		run = 0
	}
	return "", false
}

func TestSignupFlow(t *testing.T) {
	ctx := context.Background()
	env := setupAuthTest(t)

	resp := env.signup(t, "Ada@Example.com", "correct horse")
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, domain.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)

	// The code was consumed.
	_, err := env.auth.Signup(ctx, SignupRequest{
		Email: "ada@example.com", OTP: "123456", Password: "correct horse", FirstName: "Ada",
	}, ClientInfo{})
	e := requireCode(t, err, domainerrors.CodeUnauthorized)
	assert.Equal(t, "Invalid OTP", e.Message)

	err = env.auth.SendOTP(ctx, SendOTPRequest{Email: "ADA@example.com"})
	e = requireCode(t, err, domainerrors.CodeConflict)
	assert.Equal(t, "User already exists. Log in to continue.", e.Message)
}

func TestSendOTP_MailFailureRevokesCode(t *testing.T) {
	ctx := context.Background()
	env := setupAuthTest(t)
	env.mailer.err = errors.New("broker down")

	err := env.auth.SendOTP(ctx, SendOTPRequest{Email: "grace@example.com"})
	requireCode(t, err, domainerrors.CodeUnavailable)
	assert.False(t, env.otp.Verify("grace@example.com", "000000"))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	env := setupAuthTest(t)
	env.signup(t, "ada@example.com", "correct horse")

	resp, err := env.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct horse"}, ClientInfo{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	user, claims, err := env.auth.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Equal(t, resp.SessionID, claims.SessionID)

	for _, req := range []LoginRequest{
		{Email: "ada@example.com", Password: "wrong horse"},
		{Email: "nobody@example.com", Password: "correct horse"},
	} {
		_, err := env.auth.Login(ctx, req, ClientInfo{})
		e := requireCode(t, err, domainerrors.CodeInvalidCredentials)
		assert.Equal(t, "Invalid username or password.", e.Message)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	ctx := context.Background()
	env := setupAuthTest(t)
	first := env.signup(t, "ada@example.com", "correct horse")

	second, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken}, ClientInfo{})
	requireCode(t, err, domainerrors.CodeTokenExpired)

	err = env.auth.Logout(ctx, "user-someone-else", second.SessionID)
	requireCode(t, err, domainerrors.CodeForbidden)

	require.NoError(t, env.auth.Logout(ctx, first.User.ID, second.SessionID))
	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: second.RefreshToken}, ClientInfo{})
	requireCode(t, err, domainerrors.CodeTokenExpired)

	require.NoError(t, env.auth.Logout(ctx, first.User.ID, second.SessionID), "logout is idempotent")
}

func TestBlockedUser(t *testing.T) {
	ctx := context.Background()
	env := setupAuthTest(t)
	resp := env.signup(t, "ada@example.com", "correct horse")

	_, err := env.admin.SetBlocked(ctx, "", resp.User.ID, true)
	require.NoError(t, err)
	assert.Contains(t, env.events.types(), sse.EventUserBlocked)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct horse"}, ClientInfo{})
	e := requireCode(t, err, domainerrors.CodeForbidden)
	assert.Equal(t, "User is blocked by admin.", e.Message)

	_, _, err = env.auth.VerifyAccessToken(ctx, resp.AccessToken)
	requireCode(t, err, domainerrors.CodeForbidden)

	// Blocking ended the session.
	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken}, ClientInfo{})
	requireCode(t, err, domainerrors.CodeTokenExpired)

	_, err = env.admin.SetBlocked(ctx, "", resp.User.ID, false)
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct horse"}, ClientInfo{})
	require.NoError(t, err)
}

func TestGoogleLogin(t *testing.T) {
	ctx := context.Background()
	env := setupAuthTest(t)

	t.Run("creates user with default names", func(t *testing.T) {
		env.google.identity = &auth.Identity{Provider: "google", Subject: "g-1", Email: "new@example.com"}
		resp, err := env.auth.LoginWithGoogle(ctx, FederatedLoginRequest{IDToken: "tok"}, ClientInfo{})
		require.NoError(t, err)
		assert.Equal(t, "Google", resp.User.FirstName)
		assert.Equal(t, "User", resp.User.LastName)
		assert.Equal(t, "g-1", resp.User.GoogleID)
		assert.False(t, resp.User.HasPassword())
	})

	t.Run("links an existing email account", func(t *testing.T) {
		signed := env.signup(t, "ada@example.com", "correct horse")
		env.google.identity = &auth.Identity{Provider: "google", Subject: "g-2", Email: "ada@example.com", FirstName: "Ada"}
		resp, err := env.auth.LoginWithGoogle(ctx, FederatedLoginRequest{IDToken: "tok"}, ClientInfo{})
		require.NoError(t, err)
		assert.Equal(t, signed.User.ID, resp.User.ID)

		stored, err := env.store.GetUserByGoogleID(ctx, "g-2")
		require.NoError(t, err)
		assert.Equal(t, signed.User.ID, stored.ID)
		assert.True(t, stored.HasPassword())
	})

	t.Run("blocked", func(t *testing.T) {
		user, err := env.store.GetUserByGoogleID(ctx, "g-1")
		require.NoError(t, err)
		_, err = env.admin.SetBlocked(ctx, "", user.ID, true)
		require.NoError(t, err)

		env.google.identity = &auth.Identity{Provider: "google", Subject: "g-1", Email: "new@example.com"}
		_, err = env.auth.LoginWithGoogle(ctx, FederatedLoginRequest{IDToken: "tok"}, ClientInfo{})
		requireCode(t, err, domainerrors.CodeForbidden)
	})

	t.Run("rejected token", func(t *testing.T) {
		env.google.err = auth.ErrIdentityRejected
		_, err := env.auth.LoginWithGoogle(ctx, FederatedLoginRequest{IDToken: "tok"}, ClientInfo{})
		requireCode(t, err, domainerrors.CodeUnauthorized)
	})

	t.Run("firebase not configured", func(t *testing.T) {
		_, err := env.auth.LoginWithFirebase(ctx, FederatedLoginRequest{IDToken: "tok"}, ClientInfo{})
		requireCode(t, err, domainerrors.CodeUnavailable)
	})
}

func TestAdmin_RolesAndSelfBlock(t *testing.T) {
	ctx := context.Background()
	env := setupAuthTest(t)
	a := env.signup(t, "a@example.com", "correct horse")
	b := env.signup(t, "b@example.com", "correct horse")

	_, err := env.admin.SetRole(ctx, a.User.ID, domain.RoleAdmin)
	require.NoError(t, err)

	_, err = env.admin.SetBlocked(ctx, a.User.ID, a.User.ID, true)
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = env.admin.SetRole(ctx, a.User.ID, domain.RoleUser)
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = env.admin.SetRole(ctx, b.User.ID, domain.RoleAdmin)
	require.NoError(t, err)
	demoted, err := env.admin.SetRole(ctx, a.User.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, demoted.Role)

	found, err := env.admin.FindUserByEmail(ctx, "B@example.com")
	require.NoError(t, err)
	assert.True(t, found.IsAdmin())

	users, err := env.admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
