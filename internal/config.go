package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/videostream/videostream_server/internal/earnings"
	"github.com/videostream/videostream_server/internal/monetization"
	"github.com/videostream/videostream_server/internal/seed"
	"github.com/videostream/videostream_server/internal/storage"
	"github.com/videostream/videostream_server/internal/stream"
	"github.com/videostream/videostream_server/internal/user"
)

const (
	DefaultConfigPath = "files/config.yaml"
	envPrefix         = "VIDEOSTREAM"

	DatabaseDriverMemory   = "memory"
	DatabaseDriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Log       LogConfig             `mapstructure:"log"`
	Database  DatabaseConfig        `mapstructure:"database"`
	Storage   storage.BackendConfig `mapstructure:"storage"`
	Streaming stream.Config         `mapstructure:"streaming"`
	Ledger    LedgerConfig          `mapstructure:"ledger"`
	Auth      user.Config           `mapstructure:"auth"`
	Seed      seed.Config           `mapstructure:"seed"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Version         string        `mapstructure:"version"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LedgerConfig struct {
	Retry   earnings.Config            `mapstructure:",squash"`
	Cleanup monetization.CleanupConfig `mapstructure:",squash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("database.driver", DatabaseDriverMemory)
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations_path", "file://files/migrations")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("storage.type", string(storage.StorageTypeLocal))
	v.SetDefault("storage.local_path", "./media")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_use_ssl", true)

	v.SetDefault("streaming.chunk_size", stream.DefaultChunkSize)
	v.SetDefault("streaming.read_timeout", 15*time.Second)
	v.SetDefault("streaming.descriptor_cache_size", 1024)
	v.SetDefault("streaming.descriptor_cache_ttl", 30*time.Second)

	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.retry_backoff", 10*time.Millisecond)
	v.SetDefault("ledger.idempotency_retention_days", 7)
	v.SetDefault("ledger.cleanup_hour", 2)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.jwt_expiration_hours", 24)

	v.SetDefault("seed.sample_data", false)
}

// LoadConfig reads path, then lets VIDEOSTREAM_* environment variables
// override any key (server.address -> VIDEOSTREAM_SERVER_ADDRESS). A missing
// file is not an error; defaults and the environment still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultConfigPath
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Warn().Str("path", path).Msg("Config file not found, using defaults and environment")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DatabaseDriverMemory:
	case DatabaseDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(config LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if config.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
