package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	insecureTokenSecret = "change-me-token-secret"
	insecureJWTSecret   = "change-me-in-production"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"center"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"center"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"walletcenter"`
	PGMaxConns  int32  `env:"PG_MAX_CONNS" envDefault:"20"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Wallet store
	WalletStoreStrategy string        `env:"WALLET_STORE_STRATEGY" envDefault:"procedure"`
	WalletStoreTimeout  time.Duration `env:"WALLET_STORE_TIMEOUT" envDefault:"3s"`
	IdempotencyGuard    bool          `env:"IDEMPOTENCY_GUARD" envDefault:"true"`
	IdempotencyRetain   time.Duration `env:"IDEMPOTENCY_RETAIN" envDefault:"1h"`

	// Game token
	TokenSecret string        `env:"TOKEN_SECRET" envDefault:"change-me-token-secret"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"150s"`
	GameURL     string        `env:"GAME_URL" envDefault:"https://game.example.com/play"`

	// Operator JWT
	JWTSecret         string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTOperatorExpiry time.Duration `env:"JWT_OPERATOR_EXPIRY" envDefault:"8h"`

	// Agent API guards
	AgentRateLimit      int           `env:"AGENT_RATE_LIMIT" envDefault:"600"`
	AgentRateWindow     time.Duration `env:"AGENT_RATE_WINDOW" envDefault:"1m"`
	SignatureMaxFailure int           `env:"SIGNATURE_MAX_FAILURES" envDefault:"5"`
	SignatureLockout    time.Duration `env:"SIGNATURE_LOCKOUT" envDefault:"15m"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers     string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled     bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaPartitions  int    `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"6"`
	KafkaReplication int    `env:"KAFKA_REPLICATION_FACTOR" envDefault:"1"`

	// Settlement worker
	RetryInterval     time.Duration `env:"RETRY_INTERVAL" envDefault:"10s"`
	RetryBatchSize    int           `env:"RETRY_BATCH_SIZE" envDefault:"50"`
	RetryFailures     int           `env:"RETRY_BREAKER_FAILURES" envDefault:"3"`
	RetryBreakerReset time.Duration `env:"RETRY_BREAKER_RESET" envDefault:"1m"`
	OutboxInterval    time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize   int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	switch c.WalletStoreStrategy {
	case "procedure", "sql":
	default:
		return fmt.Errorf("WALLET_STORE_STRATEGY must be procedure or sql, got %q", c.WalletStoreStrategy)
	}
	if c.WalletStoreTimeout <= 0 {
		return fmt.Errorf("WALLET_STORE_TIMEOUT must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.KafkaEnabled {
		if len(parseBrokers(c.KafkaBrokers)) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is empty while KAFKA_ENABLED=true")
		}
		if c.KafkaPartitions < 1 || c.KafkaReplication < 1 {
			return fmt.Errorf("KAFKA_TOPIC_PARTITIONS and KAFKA_REPLICATION_FACTOR must be at least 1")
		}
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.TokenSecret == insecureTokenSecret {
		return fmt.Errorf("TOKEN_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.TokenSecret) < 16 {
		return fmt.Errorf("TOKEN_SECRET is too short (%d chars); minimum 16 characters required", len(c.TokenSecret))
	}
	if c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
