package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studytrackapp/studytrack-server/internal/auth"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/mail"
	"github.com/studytrackapp/studytrack-server/internal/normalize"
	"github.com/studytrackapp/studytrack-server/internal/otp"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/telemetry"
)

// User-facing auth messages. Clients match on these.
const (
	msgUserExists         = "User already exists. Log in to continue."
	msgUserBlocked        = "User is blocked by admin."
	msgInvalidCredentials = "Invalid username or password."
	msgInvalidOTP         = "Invalid OTP"
)

// Login methods recorded in metrics.
const (
	methodPassword = "password"
	methodSignup   = "signup"
	methodGoogle   = "google"
	methodFirebase = "firebase"
)

// AuthService handles OTP signup, password and federated login, and token verification.
// Session management is delegated to SessionService.
type AuthService struct {
	store    store.Store
	sessions *SessionService
	tokens   *auth.TokenService
	hasher   *auth.PasswordHasher
	otp      *otp.Store
	mailer   mail.Sender
	google   auth.IdentityVerifier
	firebase auth.IdentityVerifier
	metrics  *telemetry.Metrics
	clock    domain.Clock
	logger   *slog.Logger
}

// AuthDeps groups the collaborators of AuthService. Google and Firebase are optional.
type AuthDeps struct {
	Store    store.Store
	Sessions *SessionService
	Tokens   *auth.TokenService
	Hasher   *auth.PasswordHasher
	OTP      *otp.Store
	Mailer   mail.Sender
	Google   auth.IdentityVerifier
	Firebase auth.IdentityVerifier
	Metrics  *telemetry.Metrics
	Clock    domain.Clock
	Logger   *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(deps AuthDeps) *AuthService {
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewPasswordHasher(auth.DefaultPasswordParams)
	}
	return &AuthService{
		store:    deps.Store,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		otp:      deps.OTP,
		mailer:   deps.Mailer,
		google:   deps.Google,
		firebase: deps.Firebase,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
}

// SendOTPRequest starts a signup.
type SendOTPRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// SignupRequest completes a signup with the mailed code.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	OTP       string `json:"otp" validate:"required,numeric,min=4,max=10"`
	Password  string `json:"password" validate:"required,min=8,max=1024"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest contains the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// FederatedLoginRequest carries an ID token from Google or Firebase.
type FederatedLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// SendOTP mails a fresh signup code unless the email already has an account.
func (s *AuthService) SendOTP(ctx context.Context, req SendOTPRequest) error {
	if err := validate.Validate(req); err != nil {
		return err
	}

	_, err := s.store.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return domainerrors.Conflict(msgUserExists)
	case !store.IsNotFound(err):
		return fmt.Errorf("lookup user: %w", err)
	}

	code, err := s.otp.Issue(req.Email)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}

	msg, err := mail.OTPMessage(normalize.Email(req.Email), code, s.otp.TTL())
	if err != nil {
		return err
	}
	msg.QueuedAt = s.clock.Now().UTC()
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.otp.Revoke(req.Email)
		return domainerrors.Unavailable("Could not send the verification email. Try again.").WithCause(err)
	}

	s.metrics.RecordOTPIssued(ctx)
	s.logger.Info("OTP sent", "email", msg.To)
	return nil
}

// Signup consumes the OTP, creates the account and logs it in.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, client ClientInfo) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if !s.otp.Verify(req.Email, req.OTP) {
		s.metrics.RecordLogin(ctx, methodSignup, false)
		return nil, domainerrors.Unauthorized(msgInvalidOTP)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.newUser(req.Email, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = passwordHash

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.Conflict(msgUserExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User signed up", "user_id", user.ID, "email", user.Email)
	return s.issue(ctx, user, methodSignup, client)
}

// Login authenticates with email and password.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil && !store.IsNotFound(err) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		s.metrics.RecordLogin(ctx, methodPassword, false)
		return nil, domainerrors.InvalidCredentials(msgInvalidCredentials)
	}
	if user.IsBlocked {
		s.metrics.RecordLogin(ctx, methodPassword, false)
		return nil, domainerrors.Forbidden(msgUserBlocked)
	}
	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		s.metrics.RecordLogin(ctx, methodPassword, false)
		return nil, domainerrors.InvalidCredentials(msgInvalidCredentials)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		if hash, err := s.hasher.Hash(req.Password); err == nil {
			user.PasswordHash = hash
		}
	}

	return s.issue(ctx, user, methodPassword, client)
}

// LoginWithGoogle signs in with a Google ID token.
func (s *AuthService) LoginWithGoogle(ctx context.Context, req FederatedLoginRequest, client ClientInfo) (*AuthResponse, error) {
	return s.federated(ctx, s.google, methodGoogle, req, client)
}

// LoginWithFirebase signs in with a Firebase ID token.
func (s *AuthService) LoginWithFirebase(ctx context.Context, req FederatedLoginRequest, client ClientInfo) (*AuthResponse, error) {
	return s.federated(ctx, s.firebase, methodFirebase, req, client)
}

// federated finds the user by provider subject, then by email, linking the subject to an
// existing account or creating a password-less one.
func (s *AuthService) federated(ctx context.Context, verifier auth.IdentityVerifier, method string, req FederatedLoginRequest, client ClientInfo) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, domainerrors.Unavailable(fmt.Sprintf("%s sign-in is not configured.", method))
	}

	identity, err := verifier.Verify(ctx, req.IDToken)
	if err != nil {
		s.metrics.RecordLogin(ctx, method, false)
		return nil, domainerrors.Unauthorized("Invalid ID token.").WithCause(err)
	}
	if identity.Email == "" {
		s.metrics.RecordLogin(ctx, method, false)
		return nil, domainerrors.Unauthorized("ID token has no email.")
	}

	user, err := s.findFederated(ctx, method, identity)
	if err != nil && !store.IsNotFound(err) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	switch {
	case user == nil:
		first, last := identity.FirstName, identity.LastName
		if first == "" {
			first = "Google"
		}
		if last == "" {
			last = "User"
		}
		if user, err = s.newUser(identity.Email, first, last); err != nil {
			return nil, err
		}
		linkIdentity(user, method, identity.Subject)
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.Info("User created from federated login", "user_id", user.ID, "provider", method)

	case !hasIdentity(user, method):
		linkIdentity(user, method, identity.Subject)
		s.logger.Info("Federated identity linked", "user_id", user.ID, "provider", method)
	}

	if user.IsBlocked {
		s.metrics.RecordLogin(ctx, method, false)
		return nil, domainerrors.Forbidden(msgUserBlocked)
	}

	return s.issue(ctx, user, method, client)
}

func (s *AuthService) findFederated(ctx context.Context, method string, identity *auth.Identity) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	if method == methodFirebase {
		user, err = s.store.GetUserByFirebaseUID(ctx, identity.Subject)
	} else {
		user, err = s.store.GetUserByGoogleID(ctx, identity.Subject)
	}
	if err == nil || !store.IsNotFound(err) {
		return user, err
	}
	return s.store.GetUserByEmail(ctx, identity.Email)
}

func hasIdentity(u *domain.User, method string) bool {
	if method == methodFirebase {
		return u.FirebaseUID != ""
	}
	return u.GoogleID != ""
}

func linkIdentity(u *domain.User, method, subject string) {
	if method == methodFirebase {
		u.FirebaseUID = subject
	} else {
		u.GoogleID = subject
	}
}

// Refresh rotates a refresh token.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest, client ClientInfo) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessions.RefreshSession(ctx, req.RefreshToken, client)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Logout revokes one of the caller's sessions, invalidating its refresh token.
// An already-gone session is not an error.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return domainerrors.Forbidden("You do not have access to this session.")
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainerrors.NotFound("User not found.")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// VerifyAccessToken validates a token and returns the associated user.
// Blocked and deleted users are rejected even while their token is unexpired.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, nil, domainerrors.TokenExpired("Access token expired.")
		}
		return nil, nil, domainerrors.Unauthorized("Invalid access token.")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil, domainerrors.Unauthorized("User not found.")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if user.IsBlocked {
		return nil, nil, domainerrors.Forbidden(msgUserBlocked)
	}

	return user, claims, nil
}

func (s *AuthService) newUser(email, first, last string) (*domain.User, error) {
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}
	now := s.clock.Now().UTC()
	return &domain.User{
		Syncable:  domain.Syncable{ID: userID, CreatedAt: now, UpdatedAt: now},
		Email:     normalize.Email(email),
		FirstName: first,
		LastName:  last,
		Role:      domain.RoleUser,
	}, nil
}

// issue records the login on the user and opens a session.
func (s *AuthService) issue(ctx context.Context, user *domain.User, method string, client ClientInfo) (*AuthResponse, error) {
	now := s.clock.Now().UTC()
	user.LastLoginAt = now
	user.UpdatedAt = now
	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("Failed to update last login time", "user_id", user.ID, "error", err)
	}

	sessionResp, err := s.sessions.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.metrics.RecordLogin(ctx, method, true)
	s.logger.Info("User logged in", "user_id", user.ID, "method", method)
	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}
