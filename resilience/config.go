package resilience

import (
	"time"

	"github.com/kbukum/failsafe/util"
	"github.com/kbukum/failsafe/validation"
)

// Config is the resilience section of the host configuration. It is read
// once when the engine is built.
type Config struct {
	MaxRetryAttempts  int             `mapstructure:"max_retry_attempts" validate:"min=1,max=20"`
	RetryBaseDelay    time.Duration   `mapstructure:"retry_base_delay" validate:"gte=0"`
	RetryMaxDelay     time.Duration   `mapstructure:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`
	BackoffMultiplier float64         `mapstructure:"backoff_multiplier" validate:"gte=1"`
	JitterRange       float64         `mapstructure:"jitter_range" validate:"gte=0,lte=1"`
	DefaultTimeout    time.Duration   `mapstructure:"default_timeout" validate:"gt=0"`
	MaxPayloadSize    string          `mapstructure:"max_payload_size"`
	Breaker           BreakerConfig   `mapstructure:"breaker"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
}

// Defaults.
const (
	DefaultMaxRetryAttempts = 3
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxDelay    = 30 * time.Second
	DefaultTimeout          = 30 * time.Second
	DefaultMaxPayloadSize   = "1MB"
)

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2
	}
	if c.JitterRange == 0 {
		c.JitterRange = 0.1
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.MaxPayloadSize == "" {
		c.MaxPayloadSize = DefaultMaxPayloadSize
	}
	c.Breaker.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateConfig(c); err != nil {
		return err
	}
	if _, err := util.ParseSize(c.MaxPayloadSize); err != nil {
		return validation.New().Custom(false, "max_payload_size", err.Error()).ValidateConfig()
	}
	return nil
}

// MaxPayloadBytes returns MaxPayloadSize in bytes, falling back to 1 MiB.
func (c Config) MaxPayloadBytes() int64 {
	n, err := util.ParseSize(c.MaxPayloadSize)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n
}

// DefaultStrategy is the engine-wide fallback strategy built from c.
func (c Config) DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:       c.MaxRetryAttempts,
		BaseDelay:         c.RetryBaseDelay,
		MaxDelay:          c.RetryMaxDelay,
		BackoffMultiplier: c.BackoffMultiplier,
		JitterRange:       c.JitterRange,
	}
}
