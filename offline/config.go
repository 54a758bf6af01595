package offline

import (
	"time"

	"github.com/kbukum/failsafe/encryption"
	"github.com/kbukum/failsafe/validation"
)

// Backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the offline section of the host configuration.
type Config struct {
	// Backend selects the record store: "file" or "redis".
	Backend string `mapstructure:"backend" validate:"oneof=file redis"`
	// Dir is the sync directory used by the file backend and the lock file.
	Dir        string           `mapstructure:"dir" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	Lock       LockConfig       `mapstructure:"lock"`
}

// RedisConfig configures the shared Redis backend.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	Prefix       string        `mapstructure:"prefix"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Enabled      bool          `mapstructure:"-"`
}

// EncryptionConfig enables sealing record payloads at rest.
type EncryptionConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Algorithm string `mapstructure:"algorithm" validate:"omitempty,oneof=aes-256-gcm chacha20-poly1305"`
	Key       string `mapstructure:"key" validate:"required_if=Enabled true"`
}

// LockConfig configures the advisory lock around queue replay.
type LockConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	File          string        `mapstructure:"file"`
	StaleAfter    time.Duration `mapstructure:"stale_after" validate:"gte=0"`
	Retries       int           `mapstructure:"retries" validate:"gte=0"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gte=0"`
}

// DefaultRedisPrefix namespaces record keys in a shared Redis.
const DefaultRedisPrefix = "failsafe:offline:"

// Lock defaults.
const (
	DefaultLockFile          = ".sync.lock"
	DefaultLockStaleAfter    = 120 * time.Second
	DefaultLockRetries       = 30
	DefaultLockRetryInterval = time.Second
)

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Dir == "" {
		c.Dir = "offline"
	}
	c.Redis.Enabled = c.Backend == BackendRedis
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = DefaultRedisPrefix
	}
	if c.Redis.PoolSize <= 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeout <= 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout <= 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout <= 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Encryption.Enabled && c.Encryption.Algorithm == "" {
		c.Encryption.Algorithm = string(encryption.AlgorithmAESGCM)
	}
	c.Lock.ApplyDefaults()
}

// ApplyDefaults fills zero values.
func (c *LockConfig) ApplyDefaults() {
	if c.File == "" {
		c.File = DefaultLockFile
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultLockStaleAfter
	}
	if c.Retries <= 0 {
		c.Retries = DefaultLockRetries
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultLockRetryInterval
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateConfig(c)
}

// Cipher builds the configured at-rest cipher, or nil when disabled.
func (c *Config) Cipher() (encryption.Cipher, error) {
	if !c.Encryption.Enabled {
		return nil, nil
	}
	return encryption.New(c.Encryption.Key, encryption.WithAlgorithm(encryption.Algorithm(c.Encryption.Algorithm)))
}
