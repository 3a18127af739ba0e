package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Addr        string `mapstructure:"addr"`
	Environment string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"`
	Path    string `mapstructure:"path"`
	URL     string `mapstructure:"url"`
	LogMode bool   `mapstructure:"log_mode"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type SeedConfig struct {
	AdminUsername     string `mapstructure:"admin_username"`
	AdminPassword     string `mapstructure:"admin_password"`
	StatutoryDefaults bool   `mapstructure:"statutory_defaults"`
}

type PayrollConfig struct {
	Currency        string `mapstructure:"currency"`
	StrictTaxTables bool   `mapstructure:"strict_tax_tables"`
}

type HTTPConfig struct {
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	LoginAttempts   int           `mapstructure:"login_attempts"`
	LoginWindow     time.Duration `mapstructure:"login_window"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SecurityConfig struct {
	DataKey string `mapstructure:"data_key"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Payroll  PayrollConfig  `mapstructure:"payroll"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads config.yaml (or the file at path) and applies GUARDHR_* environment
// overrides, e.g. GUARDHR_DATABASE_PATH=/tmp/guardhr.db. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GUARDHR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.addr", "127.0.0.1:8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/guardhr.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.log_mode", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("seed.admin_username", "admin")
	v.SetDefault("seed.admin_password", "")
	v.SetDefault("seed.statutory_defaults", true)
	v.SetDefault("payroll.currency", "XAF")
	v.SetDefault("payroll.strict_tax_tables", false)
	v.SetDefault("http.max_body_bytes", 5<<20)
	v.SetDefault("http.login_attempts", 10)
	v.SetDefault("http.login_window", time.Minute)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("security.data_key", "")
	v.SetDefault("log.level", "info")
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q", DriverSQLite, DriverPostgres)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.App.Environment == "production" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.HTTP.MaxBodyBytes < 1024 {
		return fmt.Errorf("http.max_body_bytes must be at least 1024")
	}
	if c.HTTP.LoginAttempts < 0 {
		return fmt.Errorf("http.login_attempts must not be negative")
	}
	if strings.TrimSpace(c.Payroll.Currency) == "" {
		return fmt.Errorf("payroll.currency is required")
	}
	return nil
}
