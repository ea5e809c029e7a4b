package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zoxknez/bidon/auth"
)

// =============================================================================
// USER STORE (auth.UserStore)
// =============================================================================

func (q *queries) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	var u auth.User
	err := q.queryRow(ctx, `
		SELECT id, username, password_hash, name, created_at
		FROM users WHERE LOWER(username) = LOWER(?)`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (q *queries) InsertUser(ctx context.Context, u *auth.User) error {
	existing, err := q.GetUserByUsername(ctx, u.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return auth.ErrUserExists
	}
	err = q.queryRow(ctx, `
		INSERT INTO users (username, password_hash, name, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		u.Username, u.PasswordHash, u.Name, u.CreatedAt.UTC(),
	).Scan(&u.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// isUniqueConstraintError matches both SQLite and PostgreSQL wording.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
