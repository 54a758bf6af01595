// Package config loads the host configuration for failsafe.
//
// Values are layered from a YAML file, an optional .env file and the
// process environment, later layers winning:
//
//	cfg, err := config.Load(config.WithConfigFile("failsafe.yml"))
//
// Environment variables carry the FAILSAFE_ prefix followed by the
// underscore-separated key path, e.g. FAILSAFE_RESILIENCE_MAX_RETRY_ATTEMPTS.
package config
