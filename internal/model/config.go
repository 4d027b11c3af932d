package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig selects and tunes the backing SQL store.
type DatabaseConfig struct {
	// Driver is "sqlite" (embedded) or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`

	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn" validate:"required"`

	// PasswordKey names a keyring entry holding the postgres password.
	// When set, the password is substituted into DSN at open time.
	PasswordKey string `mapstructure:"password_key" yaml:"password_key"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// SchedulerConfig controls when the notification engine runs.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval between ticks. Ignored when Cron is set.
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"min=1s"`

	// StartDelay postpones the first tick after start-up.
	StartDelay time.Duration `mapstructure:"start_delay" yaml:"start_delay" validate:"min=0"`

	// Cron is an optional standard cron expression replacing Interval.
	Cron string `mapstructure:"cron" yaml:"cron"`
}

// EngineConfig tunes notification decisions.
type EngineConfig struct {
	DueSoonDays int `mapstructure:"due_soon_days" yaml:"due_soon_days" validate:"min=1"`

	DedupWindow time.Duration `mapstructure:"dedup_window" yaml:"dedup_window" validate:"min=0"`

	// EscalationStrategy is "highest" (most advanced qualifying rung) or
	// "lowest" (first qualifying rung in ascending threshold order).
	EscalationStrategy string `mapstructure:"escalation_strategy" yaml:"escalation_strategy" validate:"oneof=highest lowest"`

	// DateLayout formats due dates inside notification messages.
	DateLayout string `mapstructure:"date_layout" yaml:"date_layout" validate:"required"`
}

// HTTPConfig configures the REST API.
type HTTPConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr         string        `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Mode         string        `mapstructure:"mode" yaml:"mode" validate:"oneof=debug release test"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// RedisConfig enables the dashboard statistics cache when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db" validate:"min=0"`
	StatsTTL time.Duration `mapstructure:"stats_ttl" yaml:"stats_ttl"`
}

// EventsConfig selects where notification-created events are published.
type EventsConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=none rabbitmq kafka"`

	// URL is the AMQP URL for rabbitmq.
	URL string `mapstructure:"url" yaml:"url" validate:"required_if=Driver rabbitmq"`

	// Brokers is a comma-separated broker list for kafka.
	Brokers string `mapstructure:"brokers" yaml:"brokers" validate:"required_if=Driver kafka"`

	// Destination is the queue name (rabbitmq) or topic (kafka).
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Events    EventsConfig    `mapstructure:"events" yaml:"events"`
}

// envPrefix scopes environment overrides, e.g. COMPLIANCE_DATABASE_DSN.
const envPrefix = "COMPLIANCE"

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/compliance-notifier/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "compliance-notifier", "config.yaml")
}

// defaultDatabasePath places the sqlite file next to the config.
func defaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "compliance.db")
}

// setDefaults registers every default so that env overrides resolve even
// for keys absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", defaultDatabasePath())
	v.SetDefault("database.password_key", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Hour)
	v.SetDefault("scheduler.start_delay", 10*time.Second)
	v.SetDefault("scheduler.cron", "")

	v.SetDefault("engine.due_soon_days", DueSoonDays)
	v.SetDefault("engine.dedup_window", 24*time.Hour)
	v.SetDefault("engine.escalation_strategy", "highest")
	v.SetDefault("engine.date_layout", "1/2/2006")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.jwt_secret", "")
	v.SetDefault("http.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stats_ttl", 30*time.Second)

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.url", "")
	v.SetDefault("events.brokers", "")
	v.SetDefault("events.destination", "notifications")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory is loaded into the environment first,
// and COMPLIANCE_* variables override file values. A missing file yields the
// defaults.
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the struct tags of every section.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("scheduler", cfg.Scheduler)
	v.Set("engine", cfg.Engine)
	v.Set("http", cfg.HTTP)
	v.Set("log", cfg.Log)
	v.Set("redis", cfg.Redis)
	v.Set("events", cfg.Events)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
