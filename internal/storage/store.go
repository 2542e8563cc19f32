package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"local_currency/internal/domain"

	_ "github.com/glebarez/go-sqlite"
)

// SettingsStore handles persistent key-value settings in SQLite.
type SettingsStore struct {
	db *sql.DB
}

// NewSettingsStore creates a new SQLite settings store with WAL mode enabled.
func NewSettingsStore(dbPath string) (*SettingsStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &SettingsStore{db: db}, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *SettingsStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// GetMetadata retrieves a value from the metadata table.
// A missing key yields an empty string and no error.
func (s *SettingsStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// GetSetting returns the full record for key, or nil when absent.
func (s *SettingsStore) GetSetting(ctx context.Context, key string) (*domain.AppConfig, error) {
	var cfg domain.AppConfig
	err := s.db.QueryRowContext(ctx,
		"SELECT key, value, updated_at FROM metadata WHERE key = ?", key,
	).Scan(&cfg.Key, &cfg.Value, &cfg.UpdatedAtUnixM)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return &cfg, nil
}

// Close closes the database connection.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

// SelectionStore is the default-currency record backed by SettingsStore.
// It satisfies both the default store and the local committer contracts.
type SelectionStore struct {
	settings *SettingsStore
	fallback string
	now      func() time.Time
}

// NewSelectionStore wraps settings. fallback is returned by Get when no
// currency has been committed yet.
func NewSelectionStore(settings *SettingsStore, fallback string) *SelectionStore {
	return &SelectionStore{settings: settings, fallback: fallback, now: time.Now}
}

// Get returns the stored default symbol.
func (s *SelectionStore) Get(ctx context.Context) (string, error) {
	v, err := s.settings.GetMetadata(ctx, domain.DefaultCurrencyKey)
	if err != nil {
		return "", err
	}
	if v == "" {
		return s.fallback, nil
	}
	return v, nil
}

// Set stores symbol as the default.
func (s *SelectionStore) Set(ctx context.Context, symbol string) error {
	if symbol == "" {
		return fmt.Errorf("empty currency symbol")
	}
	return s.settings.UpsertMetadata(ctx, domain.DefaultCurrencyKey, symbol, s.now().UnixMicro())
}

// Commit persists symbol locally; used when no remote settings API is configured.
func (s *SelectionStore) Commit(ctx context.Context, symbol string) error {
	return s.Set(ctx, symbol)
}
