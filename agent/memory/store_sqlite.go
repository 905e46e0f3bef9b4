package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const memoryTable = "memory_entries"

// SQLiteStore persists memory profiles in a local SQLite database. One row per
// (user, section, key); a position column preserves key insertion order so
// rendered context stays stable across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened database and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id    TEXT NOT NULL,
			section    TEXT NOT NULL,
			mem_key    TEXT NOT NULL,
			mem_value  TEXT NOT NULL,
			position   INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY(user_id, section, mem_key)
		);`, memoryTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s(user_id);`, memoryTable, memoryTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure memory schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) (*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT section, mem_key, mem_value FROM %s WHERE user_id = ? ORDER BY section, position`, memoryTable),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load memory profile: %w", err)
	}
	defer rows.Close()

	profile := NewProfile(userID)
	for rows.Next() {
		var sec, key, value string
		if err := rows.Scan(&sec, &key, &value); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		if err := profile.Set(Section(sec), key, value); err != nil {
			return nil, fmt.Errorf("apply memory entry: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory entries: %w", err)
	}
	return profile, nil
}

// Merge upserts one key inside a transaction so concurrent writers never
// observe a partial write or clash on position assignment.
func (s *SQLiteStore) Merge(ctx context.Context, userID string, sec Section, key, value string) error {
	if err := validateMerge(userID, sec, key); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin memory merge: %w", err)
	}
	defer tx.Rollback()

	var next int64
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COALESCE(MAX(position), 0) + 1 FROM %s WHERE user_id = ? AND section = ?`, memoryTable),
		userID, string(sec),
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("next memory position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, section, mem_key, mem_value, position, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, section, mem_key)
			DO UPDATE SET mem_value = excluded.mem_value, updated_at = excluded.updated_at`, memoryTable),
		userID, string(sec), key, value, next, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("merge memory entry: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
