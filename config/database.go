package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"shopreports"`
	Password string `env:"PASSWORD"                envDefault:"shopreports"`
	Name     string `env:"NAME"                    envDefault:"shopreports"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// CacheConfig contains cache configuration (Redis-based).
type CacheConfig struct {
	// TokenTTL is the TTL for cached shop access tokens.
	TokenTTL time.Duration `env:"CACHE_TOKEN_TTL" envDefault:"1h"`
}

// CryptoConfig contains at-rest encryption configuration.
type CryptoConfig struct {
	// TokenEncryptionKey is the base64-encoded 32-byte AES-256 key used to
	// encrypt shop access tokens at rest. When empty, tokens are stored
	// with a plaintext marker.
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY" envDefault:""`
}
