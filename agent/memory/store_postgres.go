package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type memoryRow struct {
	bun.BaseModel `bun:"table:memory_entries"`

	UserID    string    `bun:"user_id,pk"`
	Section   string    `bun:"section,pk"`
	Key       string    `bun:"mem_key,pk"`
	Value     string    `bun:"mem_value,notnull"`
	Position  int64     `bun:"position,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

// PostgresStore persists memory profiles in Postgres through bun. Same row
// shape as the SQLite backend; upserts keep the original position so key
// insertion order survives.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*memoryRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure memory schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (*Profile, error) {
	var rows []memoryRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("section, position").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load memory profile: %w", err)
	}

	profile := NewProfile(userID)
	for _, row := range rows {
		if err := profile.Set(Section(row.Section), row.Key, row.Value); err != nil {
			return nil, fmt.Errorf("apply memory entry: %w", err)
		}
	}
	return profile, nil
}

func (s *PostgresStore) Merge(ctx context.Context, userID string, sec Section, key, value string) error {
	if err := validateMerge(userID, sec, key); err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var next int64
		err := tx.NewSelect().
			Model((*memoryRow)(nil)).
			ColumnExpr("COALESCE(MAX(position), 0) + 1").
			Where("user_id = ?", userID).
			Where("section = ?", string(sec)).
			Scan(ctx, &next)
		if err != nil {
			return fmt.Errorf("next memory position: %w", err)
		}

		row := memoryRow{
			UserID:    userID,
			Section:   string(sec),
			Key:       key,
			Value:     value,
			Position:  next,
			UpdatedAt: time.Now().UTC(),
		}
		_, err = tx.NewInsert().
			Model(&row).
			On("CONFLICT (user_id, section, mem_key) DO UPDATE").
			Set("mem_value = EXCLUDED.mem_value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("merge memory entry: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
