package config

import (
	"github.com/kbukum/failsafe/degradation"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/observability"
	"github.com/kbukum/failsafe/offline"
	"github.com/kbukum/failsafe/resilience"
)

// DefaultServiceName is used when the configuration does not name the host.
const DefaultServiceName = "failsafe"

// Config is the complete host configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Resilience  resilience.Config    `yaml:"resilience" mapstructure:"resilience"`
	Offline     offline.Config       `yaml:"offline" mapstructure:"offline"`
	Degradation degradation.Config   `yaml:"degradation" mapstructure:"degradation"`
	Telemetry   observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	// Listen is the address the bridge HTTP transport binds to. Empty keeps
	// the bridge in-process only.
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Resilience.ApplyDefaults()
	c.Offline.ApplyDefaults()
	c.Degradation.ApplyDefaults()
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section. The base section reports plain errors,
// which are wrapped as CONFIG_INVALID here; the others already return
// application errors.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return errors.NewFactory(0).ConfigInvalid(err.Error(), errors.WithCause(err))
	}
	for _, v := range []interface{ Validate() error }{&c.Resilience, &c.Offline, &c.Degradation, &c.Telemetry} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
