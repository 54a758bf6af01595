package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/offline"
)

const sampleYAML = `
name: mail-desktop
environment: production
logging:
  level: warn
  format: json
resilience:
  max_retry_attempts: 5
  retry_base_delay: 500ms
  breaker:
    failure_threshold: 3
offline:
  dir: /var/lib/mail/offline
  lock:
    enabled: true
degradation:
  interval: 10s
`

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fs
}

func noEnv() []string { return nil }

func TestLoadFromYAML(t *testing.T) {
	fs := memFs(t, map[string]string{"failsafe.yml": sampleYAML})

	cfg, err := Load(WithFs(fs), WithEnviron(noEnv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Name != "mail-desktop" || cfg.Environment != "production" || cfg.Debug {
		t.Errorf("service config = %+v", cfg.ServiceConfig)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.ServiceName != "mail-desktop" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Resilience.MaxRetryAttempts != 5 || cfg.Resilience.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("resilience = %+v", cfg.Resilience)
	}
	if cfg.Resilience.RetryMaxDelay != 30*time.Second {
		t.Errorf("expected default max delay, got %v", cfg.Resilience.RetryMaxDelay)
	}
	if cfg.Offline.Dir != "/var/lib/mail/offline" || !cfg.Offline.Lock.Enabled || cfg.Offline.Lock.File != offline.DefaultLockFile {
		t.Errorf("offline = %+v", cfg.Offline)
	}
	if cfg.Degradation.Interval != 10*time.Second {
		t.Errorf("degradation interval = %v", cfg.Degradation.Interval)
	}
	if cfg.Telemetry.ServiceName != "mail-desktop" || cfg.Telemetry.Environment != "production" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	cfg, err := Load(WithFs(afero.NewMemMapFs()), WithEnviron(noEnv))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != DefaultServiceName || cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("service config = %+v", cfg.ServiceConfig)
	}
	if cfg.Offline.Backend != offline.BackendFile {
		t.Errorf("backend = %q", cfg.Offline.Backend)
	}
	if len(cfg.Degradation.Capabilities) == 0 {
		t.Error("expected default capabilities")
	}
}

func TestLoadLayering(t *testing.T) {
	fs := memFs(t, map[string]string{
		"failsafe.yml": sampleYAML,
		".env":         "FAILSAFE_OFFLINE_DIR=/from/dotenv\nFAILSAFE_RESILIENCE_MAX_RETRY_ATTEMPTS=7\n",
	})
	environ := func() []string {
		return []string{
			"FAILSAFE_RESILIENCE_MAX_RETRY_ATTEMPTS=9",
			"MAX_RETRY_ATTEMPTS=1",
			`FAILSAFE_DEGRADATION_INTERVAL="1m"`,
		}
	}

	cfg, err := Load(WithFs(fs), WithEnviron(environ))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Offline.Dir != "/from/dotenv" {
		t.Errorf(".env should override YAML, got %q", cfg.Offline.Dir)
	}
	if cfg.Resilience.MaxRetryAttempts != 9 {
		t.Errorf("environment should override .env, got %d", cfg.Resilience.MaxRetryAttempts)
	}
	if cfg.Degradation.Interval != time.Minute {
		t.Errorf("interval = %v", cfg.Degradation.Interval)
	}
}

func TestLoadExplicitFiles(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/etc/mail/custom.yml": "name: custom\n",
		"/etc/mail/custom.env": "FAILSAFE_VERSION=2.1.0\n",
	})

	cfg, err := Load(WithFs(fs), WithEnviron(noEnv),
		WithConfigFile("/etc/mail/custom.yml"), WithEnvFile("/etc/mail/custom.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "custom" || cfg.Version != "2.1.0" {
		t.Errorf("config = %+v", cfg.ServiceConfig)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(WithFs(afero.NewMemMapFs()), WithEnviron(noEnv), WithConfigFile("/nope.yml"))
	if !errors.HasCode(err, errors.CodeConfigLoadFailed) {
		t.Errorf("expected CONFIG_LOAD_FAILED, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"environment", "environment: qa\n"},
		{"logging level", "logging:\n  level: loud\n"},
		{"retry attempts", "resilience:\n  max_retry_attempts: 50\n"},
		{"offline backend", "offline:\n  backend: s3\n"},
		{"encryption key", "offline:\n  encryption:\n    enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memFs(t, map[string]string{"failsafe.yml": tt.yaml})
			_, err := Load(WithFs(fs), WithEnviron(noEnv))
			if !errors.HasCode(err, errors.CodeConfigInvalid) {
				t.Errorf("expected CONFIG_INVALID, got %v", err)
			}
		})
	}
}

func TestResolveFiles(t *testing.T) {
	fs := memFs(t, map[string]string{
		"config/failsafe.yml":                 "name: a\n",
		"/home/u/.config/failsafe/config.yml": "name: b\n",
		"config/.env":                         "",
	})
	r := &Resolver{Fs: fs}

	got := r.ResolveFiles(LoaderConfig{ConfigDir: "/home/u/.config"})
	if got.ConfigFile != "./config/failsafe.yml" {
		t.Errorf("config file = %q", got.ConfigFile)
	}
	if got.EnvFile != "config/.env" {
		t.Errorf("env file = %q", got.EnvFile)
	}

	_ = fs.Remove("config/failsafe.yml")
	got = r.ResolveFiles(LoaderConfig{ConfigDir: "/home/u/.config"})
	if got.ConfigFile != "/home/u/.config/failsafe/config.yml" {
		t.Errorf("user config file = %q", got.ConfigFile)
	}

	got = r.ResolveFiles(LoaderConfig{ConfigFile: "x.yml", EnvFile: "y.env"})
	if got.ConfigFile != "x.yml" || got.EnvFile != "y.env" {
		t.Errorf("explicit paths not kept: %+v", got)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("OFFLINE_LOCK_STALE_AFTER")
	want := []string{"offline.lock.stale_after", "offline_lock_stale_after"}
	for _, w := range want {
		found := false
		for _, v := range variants {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("variants %s missing %q", strings.Join(variants, ","), w)
		}
	}

	if got := generateEnvKeyVariants("LISTEN"); len(got) != 1 || got[0] != "listen" {
		t.Errorf("single part = %v", got)
	}
}
