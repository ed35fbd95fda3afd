package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Addr         string   `toml:"addr"`
	CORSOrigins  []string `toml:"cors_origins"`
	TemplatesDir string   `toml:"templates_dir"` // empty means the embedded index page
}

type DatabaseConfig struct {
	Driver        string `toml:"driver"`
	DSN           string `toml:"dsn"`
	MongoDatabase string `toml:"mongo_database"`
}

type AuthConfig struct {
	AdminCode    string   `toml:"admin_code"`
	SessionTTL   Duration `toml:"session_ttl"`
	CookieName   string   `toml:"cookie_name"`
	SecureCookie bool     `toml:"secure_cookie"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration lets TOML files carry durations as "24h" style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:        DriverSQLite,
			DSN:           "./data/torrents.db",
			MongoDatabase: "torrent_sharing_db",
		},
		Auth: AuthConfig{
			AdminCode:  "ADMIN123",
			SessionTTL: Duration{24 * time.Hour},
			CookieName: "torrents_session",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the TOML file at path on top of the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if p := os.Getenv("PORT"); p != "" {
		c.Server.Addr = ":" + p
	}
	if v := os.Getenv("TORRENTS_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("TORRENTS_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("TORRENTS_ADMIN_CODE"); v != "" {
		c.Auth.AdminCode = v
	}
	if v := os.Getenv("TORRENTS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite, DriverPostgres, DriverMongo:
		c.Database.Driver = strings.ToLower(c.Database.Driver)
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Database.Driver == DriverMongo && c.Database.MongoDatabase == "" {
		return errors.New("mongo_database is required for the mongodb driver")
	}
	if c.Auth.SessionTTL.Duration <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Auth.CookieName == "" {
		return errors.New("auth.cookie_name is required")
	}
	return nil
}
