package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/lehmann314159/folio/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert hits a UNIQUE constraint.
	ErrDuplicate = errors.New("record already exists")
)

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Users

const userColumns = `id, username, email, password_hash, avatar, role, provider, created_at`

func (r *Repository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// UsernameOrEmailTaken reports whether any user already holds the username or the email.
func (r *Repository) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`, username, email).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, avatar, role, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.Username, u.Email, nullString(u.PasswordHash), nullString(u.Avatar), string(u.Role), u.Provider, u.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (r *Repository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var hash, avatar sql.NullString
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &avatar, &role, &u.Provider, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	u.Avatar = avatar.String
	u.Role = models.Role(role)
	return &u, nil
}

// Messages

func (r *Repository) CreateMessage(ctx context.Context, m *models.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, client_token, user_id, user_name, user_email, user_avatar, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, nullString(m.ClientToken), m.UserID, m.UserName, nullString(m.UserEmail), nullString(m.UserAvatar), m.Content, m.CreatedAt.UTC())
	return err
}

// ListMessages returns every message, newest first.
func (r *Repository) ListMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_token, user_id, user_name, user_email, user_avatar, content, created_at
		FROM messages
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var token, email, avatar sql.NullString
		if err := rows.Scan(&m.ID, &token, &m.UserID, &m.UserName, &email, &avatar, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ClientToken = token.String
		m.UserEmail = email.String
		m.UserAvatar = avatar.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Revoked tokens

func (r *Repository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`, jti, expiresAt.UTC())
	return err
}

func (r *Repository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeRevokedTokens drops entries whose tokens would fail expiry checks anyway.
func (r *Repository) PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
