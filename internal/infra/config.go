package infra

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment overrides. Values from the environment win over the file.
const (
	EnvCatalogURL  = "LOCALCURRENCY_CATALOG_URL"
	EnvSettingsURL = "LOCALCURRENCY_SETTINGS_URL"
	EnvAPIToken    = "LOCALCURRENCY_API_TOKEN"
	EnvLogLevel    = "LOCALCURRENCY_LOG_LEVEL"
)

// Config holds every setting of the application.
// LoadConfig starts from Default, applies the file, then the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		CatalogURL  string `yaml:"catalog_url" validate:"omitempty,url"`
		SettingsURL string `yaml:"settings_url" validate:"omitempty,url"`
		Token       string `yaml:"token"`
		TimeoutSec  int    `yaml:"timeout_sec" validate:"gte=1,lte=120"`
		Retries     int    `yaml:"retries" validate:"gte=0,lte=10"`
	} `yaml:"api"`

	Catalog struct {
		Source string `yaml:"source" validate:"oneof=http file"`
		File   string `yaml:"file"`
	} `yaml:"catalog"`

	Storage struct {
		Path string `yaml:"path"` // empty: <workspace>/data/settings.db
	} `yaml:"storage"`

	Server struct {
		Addr        string `yaml:"addr" validate:"required"`
		MetricsPath string `yaml:"metrics_path" validate:"startswith=/"`
	} `yaml:"server"`

	UI struct {
		Locale        string `yaml:"locale" validate:"required"`
		LocaleFile    string `yaml:"locale_file"`
		DefaultSymbol string `yaml:"default_symbol" validate:"required"`
		InboxSize     int    `yaml:"inbox_size" validate:"gte=0"`
		Icons         struct {
			Available []string          `yaml:"available"`
			Overrides map[string]string `yaml:"overrides"`
		} `yaml:"icons"`
	} `yaml:"ui"`

	Logging struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"logging"`
}

// Default returns a configuration that works offline with a file catalog
// and the local settings store.
func Default() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.App.Version = "dev"
	cfg.API.TimeoutSec = 10
	cfg.API.Retries = 2
	cfg.Catalog.Source = "file"
	cfg.Catalog.File = "configs/catalog.yaml"
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Server.MetricsPath = "/metrics"
	cfg.UI.Locale = "en"
	cfg.UI.DefaultSymbol = "USD"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Catalog.Source {
	case "http":
		if c.API.CatalogURL == "" {
			return fmt.Errorf("catalog source http requires api.catalog_url")
		}
	case "file":
		if c.Catalog.File == "" {
			return fmt.Errorf("catalog source file requires catalog.file")
		}
	}
	return nil
}

// Timeout returns the HTTP timeout for collaborator calls.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// overrideWithEnv replaces settings with environment values when present.
func overrideWithEnv(cfg *Config) {
	if cfg.API.Token != "" {
		slog.Warn("API token found in config file; prefer the environment",
			slog.String("variable", EnvAPIToken))
	}

	if v := os.Getenv(EnvCatalogURL); v != "" {
		cfg.API.CatalogURL = v
		cfg.Catalog.Source = "http"
	}
	if v := os.Getenv(EnvSettingsURL); v != "" {
		cfg.API.SettingsURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
}
