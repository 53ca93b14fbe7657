package utils

import (
	"fmt"
	"log"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

var (
	EnvPath string = "."
)

type Config struct {
	Env               string   `mapstructure:"ENV"`
	ServerPort        int      `mapstructure:"SERVER_PORT"`
	SigningKey        string   `mapstructure:"SIGNING_KEY"`
	StoreDriver       string   `mapstructure:"STORE_DRIVER"`
	DBUsername        string   `mapstructure:"DB_USERNAME"`
	DBPassword        string   `mapstructure:"DB_PASSWORD"`
	DBHost            string   `mapstructure:"DB_HOST"`
	DBPort            string   `mapstructure:"DB_PORT"`
	DBDriver          string   `mapstructure:"DB_DRIVER"`
	DBName            string   `mapstructure:"DB_NAME"`
	SSLMode           string   `mapstructure:"SSLMODE"`
	MigrationsPath    string   `mapstructure:"MIGRATIONS_PATH"`
	Papertrail        string   `mapstructure:"PAPERTRAIL"`
	PapertrailAppName string   `mapstructure:"PAPERTRAIL_APP_NAME"`
	LogLevel          string   `mapstructure:"LOG_LEVEL"`
	RedisHost         string   `mapstructure:"REDIS_HOST"`
	RedisPort         string   `mapstructure:"REDIS_PORT"`
	RedisPassword     string   `mapstructure:"REDIS_PASSWORD"`
	LockBackend       string   `mapstructure:"LOCK_BACKEND"`
	KafkaBrokers      []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic        string   `mapstructure:"KAFKA_TOPIC"`
	WebhookSecret     string   `mapstructure:"PAYSCRIBE_WEBHOOK_SECRET"`

	IdempotencyTTL  time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	PendingTimeout  time.Duration `mapstructure:"PENDING_TIMEOUT"`
	SweepInterval   time.Duration `mapstructure:"SWEEP_INTERVAL"`
	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	LockMemory    = "memory"
	LockRedis     = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("STORE_DRIVER", StorePostgres)
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("SSLMODE", "disable")
	v.SetDefault("MIGRATIONS_PATH", "file://db/migrations")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOCK_BACKEND", LockMemory)
	v.SetDefault("KAFKA_TOPIC", "wallet.transactions")
	v.SetDefault("IDEMPOTENCY_TTL", 72*time.Hour)
	v.SetDefault("PENDING_TIMEOUT", 30*time.Minute)
	v.SetDefault("SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("CLEANUP_INTERVAL", time.Hour)
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "."
	}

	// Create a new Viper instance to avoid global state
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("")
	v.AutomaticEnv()
	bindEnvs(v, Config{})

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		// Environment variables alone are enough to boot
		log.Printf("Warning: Unable to read config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.ServerPort == 0 {
		return fmt.Errorf("server port must be specified")
	}

	if config.SigningKey == "" {
		return fmt.Errorf("signing key must be specified")
	}

	if config.WebhookSecret == "" {
		return fmt.Errorf("webhook secret must be specified")
	}

	switch config.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if config.DBUsername == "" || config.DBPassword == "" {
			return fmt.Errorf("database credentials must be provided")
		}
	default:
		return fmt.Errorf("unknown store driver %q", config.StoreDriver)
	}

	if config.LockBackend == LockRedis && config.RedisHost == "" {
		return fmt.Errorf("redis host must be provided for the redis lock backend")
	}

	if config.PendingTimeout <= 0 || config.SweepInterval <= 0 {
		return fmt.Errorf("pending timeout and sweep interval must be positive")
	}

	return nil
}

// Redact masks secrets for logging
func (c *Config) Redact() Config {
	redacted := *c
	redacted.SigningKey = "****"
	redacted.DBPassword = "****"
	redacted.RedisPassword = "****"
	redacted.WebhookSecret = "****"
	return redacted
}

func LoadCustomConfig(path string, val interface{}) error {
	if path == "" {
		path = "."
	}

	v := viper.New()

	// Allow overriding config via environment variables
	v.SetEnvPrefix("NEXA")
	v.AutomaticEnv()
	bindEnvs(v, val)

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Unable to read config file: %v", err)
	}

	if err := v.Unmarshal(val); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}

// bindEnvs registers every mapstructure key so AutomaticEnv can see keys
// that are absent from the config file.
func bindEnvs(v *viper.Viper, val interface{}) {
	t := reflect.TypeOf(val)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" {
			_ = v.BindEnv(key)
		}
	}
}
