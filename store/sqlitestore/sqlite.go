package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jrsteele09/zimbra-connector/store"
)

var _ store.Repo = (*SQLiteStore)(nil)

// SQLiteStore implements store.Repo on a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens (or creates) a SQLite database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := s.db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetUserValue(ctx context.Context, userID, key, defaultValue string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT config_value FROM user_values WHERE user_id = ? AND config_key = ?", userID, key)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading user value %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetUserValue(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_values (user_id, config_key, config_value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(user_id, config_key) DO UPDATE SET
	config_value = excluded.config_value,
	updated_at = CURRENT_TIMESTAMP`, userID, key, value)
	if err != nil {
		return fmt.Errorf("writing user value %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteUserValue(ctx context.Context, userID, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM user_values WHERE user_id = ? AND config_key = ?", userID, key)
	if err != nil {
		return fmt.Errorf("deleting user value %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) GetAppValue(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT config_value FROM app_values WHERE config_key = ?", key)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading app value %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetAppValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO app_values (config_key, config_value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(config_key) DO UPDATE SET
	config_value = excluded.config_value,
	updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("writing app value %q: %w", key, err)
	}
	return nil
}
