package degradation

import (
	"time"

	"github.com/kbukum/failsafe/validation"
)

// DefaultInterval is how often capabilities are probed.
const DefaultInterval = 30 * time.Second

// Config is the degradation section of the host configuration.
type Config struct {
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
	// DisableReplay stops the queue from being replayed on restoration.
	DisableReplay bool `mapstructure:"disable_replay"`
	// Capabilities replaces DefaultCapabilities when set.
	Capabilities []Capability `mapstructure:"capabilities" validate:"dive"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if len(c.Capabilities) == 0 {
		c.Capabilities = DefaultCapabilities()
	}
	for i := range c.Capabilities {
		if c.Capabilities[i].Fallback == "" {
			c.Capabilities[i].Fallback = FallbackNone
		}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateConfig(c); err != nil {
		return err
	}
	v := validation.New()
	seen := make(map[string]bool, len(c.Capabilities))
	for _, cp := range c.Capabilities {
		v.Custom(!seen[cp.Name], "capabilities", "duplicate capability "+cp.Name)
		seen[cp.Name] = true
	}
	return v.ValidateConfig()
}
