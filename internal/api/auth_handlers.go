package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/color"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "sendOTP",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/send-otp",
		Summary:     "Send signup OTP",
		Description: "Emails a one-time password to an address that has no account yet",
		Tags:        []string{"Authentication"},
	}, s.handleSendOTP)

	huma.Register(s.api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Sign up",
		Description:   "Verifies the emailed OTP, creates the account and returns tokens",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSignup)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "loginWithGoogle",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/google",
		Summary:     "Google login",
		Description: "Exchanges a Google ID token for StudyTrack tokens, creating the account on first use",
		Tags:        []string{"Authentication"},
	}, s.handleGoogleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "loginWithFirebase",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/firebase",
		Summary:     "Firebase login",
		Description: "Exchanges a Firebase ID token for StudyTrack tokens, creating the account on first use",
		Tags:        []string{"Authentication"},
	}, s.handleFirebaseLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Revokes the current session, or the one named in the body",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the authenticated user",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMe)
}

// === DTOs ===

// SendOTPRequest is the request body for starting a signup.
type SendOTPRequest struct {
	Email     string `json:"email" validate:"required,email,max=254" doc:"Email address to verify"`
	FirstName string `json:"first_name,omitempty" validate:"omitempty,max=100" doc:"First name, used in the greeting"`
	LastName  string `json:"last_name,omitempty" validate:"omitempty,max=100" doc:"Last name"`
}

// SendOTPInput wraps the send-otp request for Huma.
type SendOTPInput struct {
	Body SendOTPRequest
}

// SignupRequest is the request body for completing a signup.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email,max=254" doc:"Email address the OTP was sent to"`
	OTP       string `json:"otp" validate:"required" doc:"One-time password from the email"`
	Password  string `json:"password" validate:"required,min=8,max=1024" doc:"New password"`
	FirstName string `json:"first_name" validate:"required,max=100" doc:"First name"`
	LastName  string `json:"last_name,omitempty" validate:"omitempty,max=100" doc:"Last name"`
}

// SignupInput wraps the signup request for Huma.
type SignupInput struct {
	Body SignupRequest
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" doc:"User email"`
	Password string `json:"password" validate:"required,max=1024" doc:"User password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// IDTokenRequest carries a federated identity token.
type IDTokenRequest struct {
	IDToken string `json:"id_token" validate:"required" doc:"ID token issued by the identity provider"`
}

// IDTokenInput wraps a federated login request for Huma.
type IDTokenInput struct {
	Body IDTokenRequest
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" doc:"Refresh token"`
}

// RefreshInput wraps the refresh request for Huma.
type RefreshInput struct {
	Body RefreshRequest
}

// LogoutRequest is the optional request body for logout.
type LogoutRequest struct {
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=100" doc:"Session ID to revoke; defaults to the current one"`
}

// LogoutInput wraps the logout request for Huma.
type LogoutInput struct {
	Body *LogoutRequest `required:"false"`
}

// UserResponse contains user information in API responses.
type UserResponse struct {
	ID          string      `json:"id" doc:"User ID"`
	Email       string      `json:"email" doc:"User email"`
	FirstName   string      `json:"first_name" doc:"First name"`
	LastName    string      `json:"last_name" doc:"Last name"`
	Role        domain.Role `json:"role" doc:"Role (user or admin)"`
	IsBlocked   bool        `json:"is_blocked" doc:"Whether an admin blocked the account"`
	HasPassword bool        `json:"has_password" doc:"Whether password login is available"`
	AvatarColor string      `json:"avatar_color" doc:"Stable hex color for the initials avatar"`
	CreatedAt   time.Time   `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   time.Time   `json:"updated_at" doc:"Last update timestamp"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty" doc:"Last login timestamp"`
}

// AuthResponse contains authentication tokens and user info.
type AuthResponse struct {
	AccessToken  string       `json:"access_token" doc:"PASETO access token"`
	RefreshToken string       `json:"refresh_token" doc:"Refresh token"`
	SessionID    string       `json:"session_id" doc:"Session identifier"`
	TokenType    string       `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn    int          `json:"expires_in" doc:"Token expiry in seconds"`
	User         UserResponse `json:"user" doc:"Authenticated user"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// UserOutput wraps a user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func message(msg string) *MessageOutput {
	return &MessageOutput{Body: MessageResponse{Message: msg}}
}

func mapUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		IsBlocked:   u.IsBlocked,
		HasPassword: u.HasPassword(),
		AvatarColor: color.ForUser(u.ID),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if !u.LastLoginAt.IsZero() {
		lastLogin := u.LastLoginAt
		resp.LastLoginAt = &lastLogin
	}
	return resp
}

func mapAuthResponse(resp *service.AuthResponse) *AuthOutput {
	return &AuthOutput{
		Body: AuthResponse{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			SessionID:    resp.SessionID,
			TokenType:    resp.TokenType,
			ExpiresIn:    resp.ExpiresIn,
			User:         mapUserResponse(resp.User),
		},
	}
}

// === Handlers ===

func (s *Server) handleSendOTP(ctx context.Context, input *SendOTPInput) (*MessageOutput, error) {
	err := s.services.Auth.SendOTP(ctx, service.SendOTPRequest{
		Email:     input.Body.Email,
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
	})
	if err != nil {
		return nil, err
	}
	return message("OTP sent successfully."), nil
}

func (s *Server) handleSignup(ctx context.Context, input *SignupInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Signup(ctx, service.SignupRequest{
		Email:     input.Body.Email,
		OTP:       input.Body.OTP,
		Password:  input.Body.Password,
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
	}, getClientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return mapAuthResponse(resp), nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	}, getClientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return mapAuthResponse(resp), nil
}

func (s *Server) handleGoogleLogin(ctx context.Context, input *IDTokenInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.LoginWithGoogle(ctx, service.FederatedLoginRequest{IDToken: input.Body.IDToken}, getClientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return mapAuthResponse(resp), nil
}

func (s *Server) handleFirebaseLogin(ctx context.Context, input *IDTokenInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.LoginWithFirebase(ctx, service.FederatedLoginRequest{IDToken: input.Body.IDToken}, getClientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return mapAuthResponse(resp), nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Refresh(ctx, service.RefreshRequest{RefreshToken: input.Body.RefreshToken}, getClientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return mapAuthResponse(resp), nil
}

func (s *Server) handleLogout(ctx context.Context, input *LogoutInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	sessionID := getSessionID(ctx)
	if input.Body != nil && input.Body.SessionID != "" {
		sessionID = input.Body.SessionID
	}
	if sessionID == "" {
		return nil, huma.Error400BadRequest("session_id is required")
	}

	if err := s.services.Auth.Logout(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return message("Logged out successfully."), nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUserResponse(user)}, nil
}
