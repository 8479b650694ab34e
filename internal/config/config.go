package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the full runtime configuration of the wallet service.
type Config struct {
	Env  string `env:"ENV" env-default:"development"`
	Port string `env:"PORT" env-default:"3000"`

	Database   DatabaseConfig
	Redis      RedisConfig
	Lock       LockConfig
	Stripe     StripeConfig
	Wallet     WalletConfig
	Kafka      KafkaConfig
	Reconcile  ReconcileConfig
	JWTSecret  string `env:"JWT_SECRET" env-default:"propwallet"`
	CORSOrigin string `env:"CORS_ORIGINS" env-default:"http://localhost:5173"`

	EncryptionSecret string `env:"ENCRYPTION_SECRET_KEY" env-required:"true"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" env-default:"localhost"`
	Port            int           `env:"DB_PORT" env-default:"5432"`
	User            string        `env:"DB_USER" env-default:"postgres"`
	Password        string        `env:"DB_PASSWORD" env-default:"postgres"`
	Name            string        `env:"DB_NAME" env-default:"propwallet"`
	SSLMode         string        `env:"DB_SSLMODE" env-default:"disable"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" env-default:"30m"`
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// RedisConfig lists the independent redis nodes backing the lock quorum.
// The first node also serves the webhook dedup cache.
type RedisConfig struct {
	Addrs    []string `env:"REDIS_ADDRS" env-separator:"," env-default:"localhost:6379"`
	Password string   `env:"REDIS_PASSWORD"`
	DB       int      `env:"REDIS_DB" env-default:"0"`
}

type LockConfig struct {
	TTL         time.Duration `env:"LOCK_TTL" env-default:"30s"`
	Retries     int           `env:"LOCK_RETRIES" env-default:"10"`
	RetryDelay  time.Duration `env:"LOCK_RETRY_DELAY" env-default:"200ms"`
	RetryJitter time.Duration `env:"LOCK_RETRY_JITTER" env-default:"200ms"`
	DriftFactor float64       `env:"LOCK_DRIFT_FACTOR" env-default:"0.01"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY" env-required:"true"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET" env-required:"true"`
}

type WalletConfig struct {
	Currency  string `env:"WALLET_CURRENCY" env-default:"usd"`
	MaxAmount string `env:"WALLET_MAX_AMOUNT" env-default:"1000000.00"`
}

// MaxAmountDecimal parses MaxAmount, falling back to zero (no limit) when malformed.
func (c WalletConfig) MaxAmountDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.MaxAmount)
	if err != nil {
		log.Printf("invalid WALLET_MAX_AMOUNT %q, no per-operation limit applied", c.MaxAmount)
		return decimal.Zero
	}
	return d
}

type KafkaConfig struct {
	Brokers        []string      `env:"KAFKA_BROKERS" env-separator:","`
	Topic          string        `env:"KAFKA_TOPIC" env-default:"wallet.ledger.events"`
	PublishTimeout time.Duration `env:"KAFKA_PUBLISH_TIMEOUT" env-default:"2s"`
}

type ReconcileConfig struct {
	Interval time.Duration `env:"RECONCILE_INTERVAL" env-default:"5m"`
	Age      time.Duration `env:"RECONCILE_AGE" env-default:"30m"`
	Batch    int           `env:"RECONCILE_BATCH" env-default:"100"`
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the .env file (if any) and then the process environment into a Config.
func Load() (*Config, error) {
	LoadEnv()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg.Redis.Addrs = compact(cfg.Redis.Addrs)
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)
	if len(cfg.Redis.Addrs) == 0 {
		return nil, fmt.Errorf("read config: REDIS_ADDRS must list at least one node")
	}
	return &cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("cannot read config: " + err.Error())
	}
	return cfg
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
