package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"local_currency/internal/engine"
	"local_currency/internal/icon"
	"local_currency/internal/infra"
	"local_currency/internal/locale"
	"local_currency/internal/storage"
)

// Bootstrap orchestrates the application startup sequence and owns the
// collaborators shared by every screen.
type Bootstrap struct {
	Config    *infra.Config
	Settings  *storage.SettingsStore
	Defaults  *storage.SelectionStore
	Source    engine.CatalogSource
	Committer engine.Committer
	Locale    *locale.Bundle
	Icons     *icon.Resolver
	Metrics   *infra.Metrics

	dataDir string
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// LoadConfig reads the configuration. With an empty path the usual
// locations are searched and a missing file falls back to defaults;
// an explicit path must exist.
func LoadConfig(path string) (*infra.Config, error) {
	explicit := path != ""
	if !explicit {
		path = infra.ResolveConfigPath()
	}

	cfg, err := infra.LoadConfig(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			slog.Warn("No config file found, using defaults", slog.String("path", path))
			return infra.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Initialize performs core system initialization (config, logger, DB, collaborators).
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	return b.InitializeWith(cfg)
}

// InitializeWith wires the collaborators for an already loaded config.
func (b *Bootstrap) InitializeWith(cfg *infra.Config) error {
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping local currency", slog.String("version", cfg.App.Version))

	dbPath := infra.SettingsDBPath(cfg)
	b.dataDir = filepath.Dir(dbPath)
	if err := infra.EnsureDir(b.dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	settings, err := storage.NewSettingsStore(dbPath)
	if err != nil {
		return err
	}
	b.Settings = settings
	b.Defaults = storage.NewSelectionStore(settings, cfg.UI.DefaultSymbol)
	slog.Info("Settings store initialized (WAL-mode)", slog.String("path", dbPath))

	bundle, err := locale.Load(cfg.UI.Locale)
	if err != nil {
		return err
	}
	if cfg.UI.LocaleFile != "" {
		custom, err := locale.LoadFile(cfg.UI.Locale, cfg.UI.LocaleFile)
		if err != nil {
			return err
		}
		bundle = bundle.Merge(custom)
	}
	b.Locale = bundle

	b.Icons = icon.NewResolver(cfg.UI.Icons.Available, cfg.UI.Icons.Overrides)
	b.Metrics = infra.NewMetrics("")

	switch cfg.Catalog.Source {
	case "http":
		b.Source = infra.NewHTTPCatalogSource(cfg)
		slog.Info("Catalog source: HTTP", slog.String("url", cfg.API.CatalogURL))
	default:
		b.Source = infra.NewFileCatalogSource(cfg.Catalog.File)
		slog.Info("Catalog source: file", slog.String("path", cfg.Catalog.File))
	}

	if cfg.API.SettingsURL != "" {
		b.Committer = infra.NewHTTPCommitter(cfg)
		slog.Info("Committer: HTTP", slog.String("url", cfg.API.SettingsURL))
	} else {
		b.Committer = b.Defaults
		slog.Info("Committer: local settings store")
	}

	return nil
}

// NewScreen builds a screen that starts from the stored default currency.
func (b *Bootstrap) NewScreen(ctx context.Context, nav engine.Navigator, onUpdate func(engine.Snapshot)) *engine.Screen {
	initial, err := b.Defaults.Get(ctx)
	if err != nil {
		slog.Warn("Failed to read default currency", slog.Any("error", err))
		initial = b.Config.UI.DefaultSymbol
	}

	return engine.NewScreen(engine.Config{
		InitialSymbol: initial,
		InboxSize:     b.Config.UI.InboxSize,
		DumpPath:      filepath.Join(b.dataDir, "screen_dump.json"),
		OnStateUpdate: onUpdate,
	}, engine.Dependencies{
		Source:    b.Source,
		Committer: b.Committer,
		Defaults:  b.Defaults,
		Navigator: nav,
		Localizer: b.Locale,
		Icons:     b.Icons,
		Metrics:   b.Metrics,
	})
}

// Close releases the settings database.
func (b *Bootstrap) Close() error {
	if b.Settings == nil {
		return nil
	}
	return b.Settings.Close()
}
