// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Betting  BettingConfig  `mapstructure:"betting"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// BettingConfig holds the fixed amounts of the betting rules.
type BettingConfig struct {
	BetCost      int64  `mapstructure:"bet_cost"`
	WelcomeBonus int64  `mapstructure:"welcome_bonus"`
	Timezone     string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (b *BettingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SyncConfig holds the periodic feed sync configuration.
type SyncConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Timeout   time.Duration `mapstructure:"timeout"`
	OnStartup bool          `mapstructure:"on_startup"`
}

// FeedConfig selects the match feed source. URL takes precedence over Path.
type FeedConfig struct {
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds login and session configuration.
type AuthConfig struct {
	GoogleClientID string        `mapstructure:"google_client_id"`
	SessionCookie  string        `mapstructure:"session_cookie"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	UserIDs []string `mapstructure:"user_ids"`
}

// KafkaConfig holds settlement event publishing configuration.
// An empty broker list disables publishing.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// Enabled reports whether a broker is configured.
func (k *KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// BrokerList splits the comma separated broker addresses.
func (k *KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, BETTING_BET_COST, KAFKA_BROKERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the betting rules cannot run with.
func (c *Config) Validate() error {
	if c.Betting.BetCost <= 0 {
		return fmt.Errorf("betting.bet_cost must be positive, got %d", c.Betting.BetCost)
	}
	if c.Betting.WelcomeBonus < 0 {
		return fmt.Errorf("betting.welcome_bonus must not be negative, got %d", c.Betting.WelcomeBonus)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %s", c.Sync.Interval)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "worldcup")
	v.SetDefault("database.name", "worldcup")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("betting.bet_cost", 100)
	v.SetDefault("betting.welcome_bonus", 100)
	v.SetDefault("betting.timezone", "Asia/Kolkata")

	v.SetDefault("sync.interval", "60s")
	v.SetDefault("sync.timeout", "30s")
	v.SetDefault("sync.on_startup", true)

	v.SetDefault("feed.path", "data/mockMatches.json")
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.timeout", "10s")

	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.session_cookie", "wc_session")
	v.SetDefault("auth.session_ttl", "168h")

	v.SetDefault("admin.user_ids", []string{})

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "match.settled")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admin.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
