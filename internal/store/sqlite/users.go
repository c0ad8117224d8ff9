package sqlite

import (
	"context"
	"database/sql"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/normalize"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, email, password_hash,
	first_name, last_name, google_id, firebase_uid, role, is_blocked, last_login_at`

func scanUser(sc scanner) (*domain.User, error) {
	var (
		u           domain.User
		createdAt   string
		updatedAt   string
		password    sql.NullString
		googleID    sql.NullString
		firebaseUID sql.NullString
		role        string
		isBlocked   int
		lastLoginAt string
	)

	err := sc.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Email,
		&password,
		&u.FirstName,
		&u.LastName,
		&googleID,
		&firebaseUID,
		&role,
		&isBlocked,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	if err := parseSyncable(&u.Syncable, createdAt, updatedAt); err != nil {
		return nil, err
	}
	if u.LastLoginAt, err = parseTime(lastLoginAt); err != nil {
		return nil, err
	}

	u.PasswordHash = password.String
	u.GoogleID = googleID.String
	u.FirebaseUID = firebaseUID.String
	u.Role = domain.Role(role)
	u.IsBlocked = isBlocked != 0

	return &u, nil
}

func userArgs(u *domain.User) []any {
	lastLogin := ""
	if !u.LastLoginAt.IsZero() {
		lastLogin = formatTime(u.LastLoginAt)
	}
	return []any{
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
		u.Email,
		normalize.Email(u.Email),
		nullString(u.PasswordHash),
		u.FirstName,
		u.LastName,
		nullString(u.GoogleID),
		nullString(u.FirebaseUID),
		string(u.Role),
		boolToInt(u.IsBlocked),
		lastLogin,
	}
}

// CreateUser inserts a new user. Emails are unique case-insensitively.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.Email = normalize.Email(u.Email)
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (
		id, created_at, updated_at, email, email_lower, password_hash,
		first_name, last_name, google_id, firebase_uid, role, is_blocked, last_login_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{u.ID}, userArgs(u)...)...)
	return mapConstraint(err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return queryOne(ctx, s.db, scanUser, store.ErrUserNotFound,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email, ignoring case and surrounding space.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return queryOne(ctx, s.db, scanUser, store.ErrUserNotFound,
		`SELECT `+userColumns+` FROM users WHERE email_lower = ?`, normalize.Email(email))
}

// GetUserByGoogleID retrieves a user linked to a Google account.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	if googleID == "" {
		return nil, store.ErrUserNotFound
	}
	return queryOne(ctx, s.db, scanUser, store.ErrUserNotFound,
		`SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
}

// GetUserByFirebaseUID retrieves a user linked to a Firebase account.
func (s *Store) GetUserByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	if uid == "" {
		return nil, store.ErrUserNotFound
	}
	return queryOne(ctx, s.db, scanUser, store.ErrUserNotFound,
		`SELECT `+userColumns+` FROM users WHERE firebase_uid = ?`, uid)
}

// UpdateUser replaces every mutable column of a user.
func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	u.Email = normalize.Email(u.Email)
	return s.execAffected(ctx, store.ErrUserNotFound, `UPDATE users SET
		created_at = ?, updated_at = ?, email = ?, email_lower = ?, password_hash = ?,
		first_name = ?, last_name = ?, google_id = ?, firebase_uid = ?, role = ?,
		is_blocked = ?, last_login_at = ?
		WHERE id = ?`,
		append(userArgs(u), u.ID)...)
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return queryAll(ctx, s.db, scanUser,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
}
