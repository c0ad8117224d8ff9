package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// AdminService handles admin-only user management operations.
type AdminService struct {
	base
	sessions *SessionService
}

// NewAdminService creates a new admin service.
func NewAdminService(store store.Store, sessions *SessionService, events store.EventEmitter, logger *slog.Logger) *AdminService {
	return &AdminService{
		base:     newBase(store, events, nil, logger),
		sessions: sessions,
	}
}

// ListUsers returns every user ordered by creation.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return nonNil(users), nil
}

// GetUser returns a user by ID.
func (s *AdminService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainerrors.NotFound("User not found.")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// FindUserByEmail returns a user by email.
func (s *AdminService) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainerrors.NotFoundf("No user with email %s.", email)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SetBlocked blocks or unblocks a user. Blocking ends every session of the user.
// adminID may be empty when called from the CLI.
func (s *AdminService) SetBlocked(ctx context.Context, adminID, targetID string, blocked bool) (*domain.User, error) {
	if adminID != "" && adminID == targetID {
		return nil, domainerrors.Forbidden("You cannot block yourself.")
	}

	user, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked == blocked {
		return user, nil
	}

	user.IsBlocked = blocked
	s.touch(&user.Syncable)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	revoked := 0
	if blocked {
		if revoked, err = s.sessions.DeleteUserSessions(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	s.events.Emit(sse.NewUserBlockedEvent(user.ID, blocked))
	s.logger.Info("User block state changed",
		"user_id", user.ID,
		"blocked", blocked,
		"sessions_revoked", revoked,
		"admin_id", adminID,
	)
	return user, nil
}

// SetRole changes a user's role. The last admin cannot be demoted.
func (s *AdminService) SetRole(ctx context.Context, targetID string, role domain.Role) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domainerrors.Validationf("role must be %s or %s", domain.RoleUser, domain.RoleAdmin)
	}

	user, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	if user.Role == domain.RoleAdmin {
		if err := s.ensureOtherAdminExists(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	user.Role = role
	s.touch(&user.Syncable)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User role changed", "user_id", user.ID, "role", role)
	return user, nil
}

func (s *AdminService) ensureOtherAdminExists(ctx context.Context, excludeID string) error {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if u.ID != excludeID && u.IsAdmin() {
			return nil
		}
	}
	return domainerrors.Forbidden("Cannot demote the only admin.")
}
