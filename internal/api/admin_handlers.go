package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminListUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users",
		Summary:     "List users",
		Description: "Returns every user. Admin only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users/{userId}",
		Summary:     "Get user",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminBlockUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/users/{userId}/block",
		Summary:     "Block user",
		Description: "Blocks a user and revokes all of their sessions",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminBlockUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminUnblockUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/users/{userId}/unblock",
		Summary:     "Unblock user",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminUnblockUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminSetRole",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/users/{userId}/role",
		Summary:     "Set user role",
		Description: "Promotes or demotes a user. The last admin cannot be demoted.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminSetRole)
}

// UserPathInput identifies a user.
type UserPathInput struct {
	UserID string `path:"userId" doc:"User ID"`
}

// SetRoleRequest is the request body for changing a role.
type SetRoleRequest struct {
	Role domain.Role `json:"role" enum:"user,admin" doc:"New role"`
}

// SetRoleInput wraps the set role request for Huma.
type SetRoleInput struct {
	UserID string `path:"userId" doc:"User ID"`
	Body   SetRoleRequest
}

// ListUsersResponse contains every user.
type ListUsersResponse struct {
	Users []UserResponse `json:"users" doc:"Users ordered by creation"`
}

// ListUsersOutput wraps the list users response for Huma.
type ListUsersOutput struct {
	Body ListUsersResponse
}

func (s *Server) handleAdminListUsers(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.services.Admin.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	resp := ListUsersResponse{Users: make([]UserResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, mapUserResponse(u))
	}
	return &ListUsersOutput{Body: resp}, nil
}

func (s *Server) handleAdminGetUser(ctx context.Context, input *UserPathInput) (*UserOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	user, err := s.services.Admin.GetUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleAdminBlockUser(ctx context.Context, input *UserPathInput) (*UserOutput, error) {
	return s.setBlocked(ctx, input.UserID, true)
}

func (s *Server) handleAdminUnblockUser(ctx context.Context, input *UserPathInput) (*UserOutput, error) {
	return s.setBlocked(ctx, input.UserID, false)
}

func (s *Server) setBlocked(ctx context.Context, targetID string, blocked bool) (*UserOutput, error) {
	adminID, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Admin.SetBlocked(ctx, adminID, targetID, blocked)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleAdminSetRole(ctx context.Context, input *SetRoleInput) (*UserOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	user, err := s.services.Admin.SetRole(ctx, input.UserID, input.Body.Role)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUserResponse(user)}, nil
}
