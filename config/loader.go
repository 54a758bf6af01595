package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/util"
)

// EnvPrefix marks environment variables that override configuration keys,
// e.g. FAILSAFE_OFFLINE_DIR sets offline.dir.
const EnvPrefix = "FAILSAFE_"

// Resolver handles finding config and env files.
type Resolver struct {
	Fs afero.Fs
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths if provided, otherwise the first
// existing file in the search locations.
func (cr *Resolver) ResolveFiles(opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(configSearchPaths(opts.ConfigDir))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first([]string{".env", filepath.Join("config", ".env")})
	}
	return resolved
}

func (cr *Resolver) first(paths []string) string {
	for _, p := range paths {
		if ok, _ := afero.Exists(cr.Fs, p); ok {
			return p
		}
	}
	return ""
}

func configSearchPaths(configDir string) []string {
	paths := []string{
		"./failsafe.yml",
		"./config/failsafe.yml",
		"./config.yml",
	}
	if configDir != "" {
		paths = append(paths, filepath.Join(configDir, "failsafe", "config.yml"))
	}
	return paths
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	Fs         afero.Fs
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
	// ConfigDir is the per-user configuration directory searched last.
	ConfigDir string
	// Environ supplies the process environment; os.Environ when nil.
	Environ func() []string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFs sets the filesystem config and env files are read from.
func WithFs(fs afero.Fs) LoaderOption {
	return func(lc *LoaderConfig) { lc.Fs = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnviron replaces os.Environ as the source of overrides.
func WithEnviron(environ func() []string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environ = environ }
}

// Load reads the YAML config file and .env file, applies FAILSAFE_*
// environment overrides, fills defaults and validates the result.
// Variables from the process environment win over the .env file, which
// wins over the YAML file.
func Load(opts ...LoaderOption) (*Config, error) {
	lc := LoaderConfig{}
	if dir, err := os.UserConfigDir(); err == nil {
		lc.ConfigDir = dir
	}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.Fs == nil {
		lc.Fs = afero.NewOsFs()
	}
	if lc.Environ == nil {
		lc.Environ = os.Environ
	}

	resolver := &Resolver{Fs: lc.Fs}
	files := resolver.ResolveFiles(lc)

	cfg := &Config{}
	if err := loadFromResolvedFiles(cfg, files, lc); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromResolvedFiles unmarshals the layered sources into cfg.
func loadFromResolvedFiles(cfg *Config, files ResolvedFiles, lc LoaderConfig) error {
	errs := errors.NewFactory(0)
	v := viper.New()
	v.SetFs(lc.Fs)

	// 1. YAML config first (base configuration)
	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errs.ConfigLoadFailed(files.ConfigFile, err)
		}
	}

	// 2. .env file, without touching the process environment
	if files.EnvFile != "" {
		env, err := readEnvFile(lc.Fs, files.EnvFile)
		if err != nil {
			return errs.ConfigLoadFailed(files.EnvFile, err)
		}
		bindEnv(v, env)
	}

	// 3. process environment
	bindEnv(v, lc.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return errs.ConfigLoadFailed(v.ConfigFileUsed(), fmt.Errorf("unmarshal: %w", err))
	}
	return nil
}

func readEnvFile(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	values, err := godotenv.Parse(f)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for k, val := range values {
		out = append(out, k+"="+val)
	}
	return out, nil
}

// bindEnv sets every FAILSAFE_* entry under each key variant it could
// denote. Unprefixed entries are ignored.
func bindEnv(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		value = util.SanitizeEnvValue(value)
		for _, variant := range generateEnvKeyVariants(strings.TrimPrefix(key, EnvPrefix)) {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants creates all possible key variants for an
// environment variable name.
// Examples:
//
//	OFFLINE_DIR -> [offline_dir, offline.dir]
//	RESILIENCE_MAX_RETRY_ATTEMPTS -> [..., resilience.max_retry_attempts, ...]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	// Every split point between a dotted section path and an underscored leaf.
	for i := 1; i < len(parts); i++ {
		for j := i; j < len(parts); j++ {
			section := strings.Join(parts[:i], ".")
			middle := strings.Join(parts[i:j], "_")
			leaf := strings.Join(parts[j:], "_")
			switch {
			case middle == "":
				variants = append(variants, section+"."+leaf)
			default:
				variants = append(variants, section+"."+middle+"."+leaf)
			}
		}
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
