package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Store backends.
const (
	BackendSheets   = "sheets"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Store struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`
	Sheets struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		Tab             string `yaml:"tab"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"sheets"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config data: %w", err)
		}
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":4000"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendSheets
	}
	if cfg.Sheets.Tab == "" {
		cfg.Sheets.Tab = "viagens"
	}
	if cfg.Database.Driver == "" {
		switch cfg.Store.Backend {
		case BackendPostgres:
			cfg.Database.Driver = "pgx"
		default:
			cfg.Database.Driver = "mysql"
		}
	}
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("config: sheets.spreadsheet_id is required for the sheets backend")
		}
	case BackendMySQL, BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for SQL backends")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	return nil
}
