package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, created_at, last_seen_at, ip_address, user_agent`

func scanSession(sc scanner) (*domain.Session, error) {
	var (
		sess       domain.Session
		expiresAt  string
		createdAt  string
		lastSeenAt string
		ipAddress  sql.NullString
		userAgent  sql.NullString
	)

	err := sc.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.RefreshTokenHash,
		&expiresAt,
		&createdAt,
		&lastSeenAt,
		&ipAddress,
		&userAgent,
	)
	if err != nil {
		return nil, err
	}

	if sess.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.LastSeenAt, err = parseTime(lastSeenAt); err != nil {
		return nil, err
	}
	sess.IPAddress = ipAddress.String
	sess.UserAgent = userAgent.String

	return &sess, nil
}

// CreateSession inserts a new auth session.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (
		id, user_id, refresh_token_hash, expires_at, created_at, last_seen_at, ip_address, user_agent
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.UserID,
		sess.RefreshTokenHash,
		formatTime(sess.ExpiresAt),
		formatTime(sess.CreatedAt),
		formatTime(sess.LastSeenAt),
		nullString(sess.IPAddress),
		nullString(sess.UserAgent),
	)
	return mapConstraint(err)
}

// GetSession retrieves a live session by ID. Expired sessions read as missing.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return queryOne(ctx, s.db, scanSession, store.ErrSessionNotFound,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND expires_at > ?`,
		id, formatTime(time.Now()))
}

// GetSessionByRefreshToken retrieves a live session by refresh token hash.
func (s *Store) GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return queryOne(ctx, s.db, scanSession, store.ErrSessionNotFound,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = ? AND expires_at > ?`,
		tokenHash, formatTime(time.Now()))
}

// UpdateSession replaces a session, typically after refresh token rotation.
func (s *Store) UpdateSession(ctx context.Context, sess *domain.Session) error {
	return s.execAffected(ctx, store.ErrSessionNotFound, `UPDATE sessions SET
		user_id = ?, refresh_token_hash = ?, expires_at = ?, last_seen_at = ?,
		ip_address = ?, user_agent = ?
		WHERE id = ?`,
		sess.UserID,
		sess.RefreshTokenHash,
		formatTime(sess.ExpiresAt),
		formatTime(sess.LastSeenAt),
		nullString(sess.IPAddress),
		nullString(sess.UserAgent),
		sess.ID,
	)
}

// DeleteSession removes a session. Missing sessions are ignored.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteUserSessions removes every session of a user.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	return s.execCount(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	n, err := s.execCount(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(time.Now()))
	if err != nil {
		return 0, err
	}
	if n > 0 && s.logger != nil {
		s.logger.Info("Expired sessions pruned", "count", n)
	}
	return n, nil
}
