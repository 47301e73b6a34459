// ABOUTME: SQLite-backed user store for the notification worker
// ABOUTME: Persists chat registrations keyed by opaque install keys

package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no user matches the lookup key.
var ErrNotFound = errors.New("user not found")

// User is one registered notification recipient. InstallKey is the opaque
// credential the bridge presents when posting notifications.
type User struct {
	ChatID     int64
	FirstName  string
	InstallKey string
	CreatedAt  time.Time
}

// Store persists notification users in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the database at path. Parent directories are
// created if needed and the schema is applied automatically.
func NewStore(path string) (*Store, error) {
	logger := slog.Default().With("component", "notify-store")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("notify store initialized", "path", path)
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			chat_id     INTEGER PRIMARY KEY,
			first_name  TEXT NOT NULL,
			install_key TEXT NOT NULL UNIQUE,
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_install_key ON users(install_key);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("closing notify store")
	return s.db.Close()
}

// Upsert inserts or replaces a user record keyed by chat id.
func (s *Store) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT OR REPLACE INTO users (chat_id, first_name, install_key, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ChatID,
		user.FirstName,
		user.InstallKey,
		user.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	s.logger.Debug("stored user", "chat_id", user.ChatID)
	return nil
}

// UserByChatID retrieves a user by chat id. Returns ErrNotFound when the
// chat has never registered.
func (s *Store) UserByChatID(ctx context.Context, chatID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chat_id, first_name, install_key, created_at
		FROM users WHERE chat_id = ?
	`, chatID)
	return scanUser(row)
}

// UserByInstallKey retrieves the user holding the given install key.
// Returns ErrNotFound for unknown or revoked keys.
func (s *Store) UserByInstallKey(ctx context.Context, key string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chat_id, first_name, install_key, created_at
		FROM users WHERE install_key = ?
	`, key)
	return scanUser(row)
}

// DeleteByChatID removes a user's registration entirely.
func (s *Store) DeleteByChatID(ctx context.Context, chatID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAt string

	err := row.Scan(&user.ChatID, &user.FirstName, &user.InstallKey, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	user.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &user, nil
}
