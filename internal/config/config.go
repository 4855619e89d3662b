package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Cron    CronConfig    `mapstructure:"cron"`
	Market  MarketConfig  `mapstructure:"market"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string        `mapstructure:"level"`
	Encoding          string        `mapstructure:"encoding"`
	Development       bool          `mapstructure:"development"`
	Sampling          bool          `mapstructure:"sampling"`
	DisableCaller     bool          `mapstructure:"disable_caller"`
	DisableStacktrace bool          `mapstructure:"disable_stacktrace"`
	File              LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotated log file next to stdout.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AutoSettle string `mapstructure:"auto_settle"`
}

// MarketConfig holds the simulation constants shared by every market.
type MarketConfig struct {
	InitialBalance string           `mapstructure:"initial_balance"`
	IDLength       int              `mapstructure:"id_length"`
	IDAlphabet     string           `mapstructure:"id_alphabet"`
	IDMaxAttempts  int              `mapstructure:"id_max_attempts"`
	Defaults       MarketDefaults   `mapstructure:"defaults"`
	AutoSettle     AutoSettleConfig `mapstructure:"auto_settle"`
}

// MarketDefaults are applied to create requests that omit a coefficient.
type MarketDefaults struct {
	Alpha   string `mapstructure:"alpha"`
	Beta    string `mapstructure:"beta"`
	Theta   string `mapstructure:"theta"`
	MinCost string `mapstructure:"min_cost"`
	MaxCost string `mapstructure:"max_cost"`
}

type AutoSettleConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type SessionConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Issuer   string        `mapstructure:"issuer"`
}

type CacheConfig struct {
	Driver     string        `mapstructure:"driver"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db"`
	Password   string        `mapstructure:"password"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

type StreamConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type AuditConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Agent   string        `mapstructure:"agent"`
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxInFlight caps background sends; further entries are dropped.
	MaxInFlight int `mapstructure:"max_in_flight"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 14)
	v.SetDefault("log.file.compress", true)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.auto_settle", "@every 5s")

	v.SetDefault("market.initial_balance", "5000")
	v.SetDefault("market.id_length", 8)
	v.SetDefault("market.id_alphabet", "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	v.SetDefault("market.id_max_attempts", 16)
	v.SetDefault("market.defaults.alpha", "105")
	v.SetDefault("market.defaults.beta", "17.5")
	v.SetDefault("market.defaults.theta", "14.58")
	v.SetDefault("market.defaults.min_cost", "5")
	v.SetDefault("market.defaults.max_cost", "15")
	v.SetDefault("market.auto_settle.batch_size", 100)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.token_ttl", "24h")
	v.SetDefault("session.issuer", "market-sim")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.default_ttl", "10m")

	v.SetDefault("stream.poll_interval", "1s")
	v.SetDefault("stream.write_timeout", "5s")

	v.SetDefault("audit.base_url", "")
	v.SetDefault("audit.api_key", "")
	v.SetDefault("audit.agent", "market-sim-service")
	v.SetDefault("audit.timeout", "2s")
	v.SetDefault("audit.max_in_flight", 16)
}
