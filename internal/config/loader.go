package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Database db.Config

	LogLevel string

	// DefaultWindow is the width used when a query needs a bounded lease window.
	DefaultWindow        time.Duration
	MaxPerPage           int
	MaxMembershipPerPage int

	AutoMigrate bool
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Database:             db.DefaultConfig(),
		LogLevel:             "info",
		DefaultWindow:        30 * 24 * time.Hour,
		MaxPerPage:           domain.MaxPerPage,
		MaxMembershipPerPage: domain.MaxMembershipPerPage,
	}
}

// Load reads config.yaml from configPath (optional), REPORTS_* environment
// variables and any flags bound from flags. Flags win over env, env over file.
func Load(configPath string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("REPORTS") // REPORTS_DATABASE_HOST, REPORTS_LOG_LEVEL, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"database.host", "database.port", "database.user", "database.password",
		"database.dbname", "database.sslmode", "database.max_conns", "database.min_conns",
		"database.max_conn_lifetime", "log.level", "query.default_window",
		"query.max_per_page", "query.max_membership_per_page", "migrations.auto",
	} {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return cfg, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Debug("no config.yaml found, using defaults and env vars")
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Debug("loaded config file")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("database.max_conns") {
		cfg.Database.MaxConns = v.GetInt32("database.max_conns")
	}
	if v.IsSet("database.min_conns") {
		cfg.Database.MinConns = v.GetInt32("database.min_conns")
	}
	if v.IsSet("database.max_conn_lifetime") {
		cfg.Database.MaxConnLifetime = v.GetDuration("database.max_conn_lifetime")
	}
	if v.IsSet("log.level") {
		cfg.LogLevel = v.GetString("log.level")
	}
	if v.IsSet("query.default_window") {
		cfg.DefaultWindow = v.GetDuration("query.default_window")
	}
	if v.IsSet("query.max_per_page") {
		cfg.MaxPerPage = v.GetInt("query.max_per_page")
	}
	if v.IsSet("query.max_membership_per_page") {
		cfg.MaxMembershipPerPage = v.GetInt("query.max_membership_per_page")
	}
	if v.IsSet("migrations.auto") {
		cfg.AutoMigrate = v.GetBool("migrations.auto")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.DefaultWindow <= 0 {
		return fmt.Errorf("query.default_window must be positive, got %s", c.DefaultWindow)
	}
	if c.MaxPerPage <= 0 || c.MaxMembershipPerPage <= 0 {
		return fmt.Errorf("per_page caps must be positive")
	}
	if c.Database.Port <= 0 {
		return fmt.Errorf("database.port must be positive, got %d", c.Database.Port)
	}
	return nil
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"db-host":     "database.host",
	"db-port":     "database.port",
	"db-user":     "database.user",
	"db-password": "database.password",
	"db-name":     "database.dbname",
	"log-level":   "log.level",
	"migrate":     "migrations.auto",
}

// RegisterFlags adds the shared configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("db-host", "", "database host")
	fs.Int("db-port", 0, "database port")
	fs.String("db-user", "", "database user")
	fs.String("db-password", "", "database password")
	fs.String("db-name", "", "database name")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("migrate", false, "apply database migrations before running")
}

// bindFlags binds only flags the user actually set, so unset flags do not
// shadow env or file values with their zero defaults.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}
