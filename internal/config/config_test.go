package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, StrategyExact, cfg.License.Strategy)
	assert.Equal(t, "X-License-Key", cfg.License.HeaderName)
	assert.Equal(t, 5*time.Minute, cfg.License.CacheTTL)
	assert.Equal(t, time.Minute, cfg.License.FailureCacheTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "unknown environment",
			mutate:  func(c *Config) { c.Environment = "sandbox" },
			wantErr: "unknown environment",
		},
		{
			name:    "unknown license strategy",
			mutate:  func(c *Config) { c.License.Strategy = "majority-vote" },
			wantErr: "unknown license strategy",
		},
		{
			name: "production requires session secret",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
			},
			wantErr: "session secret is required",
		},
		{
			name: "production remote strategy requires verify URL",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
				c.Auth.SessionSecret = "s3cret"
				c.License.Strategy = StrategyRemoteConfig
			},
			wantErr: "verify URL is required",
		},
		{
			name: "production remote strategy requires product ID",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
				c.Auth.SessionSecret = "s3cret"
				c.License.Strategy = StrategyRemoteHeader
				c.License.VerifyURL = "https://licensing.example.com/verify"
			},
			wantErr: "product ID is required",
		},
		{
			name: "production local strategy valid",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
				c.Auth.SessionSecret = "s3cret"
				c.License.Key = "GATE-TEST-KEY"
				c.License.ExpectedKey = "GATE-TEST-KEY"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFileOverlaysEveryField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
logging:
  level: debug
license:
  strategy: prefix
  key_prefix: "LIC-"
  header_name: X-Custom-Key
  cache_ttl: 30s
  failure_cache_ttl: 5s
`), 0o644))

	cfg := Default()
	require.NoError(t, loadFromFile(path, cfg))

	// Fields with built-in defaults still take the file's values.
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, StrategyPrefix, cfg.License.Strategy)
	assert.Equal(t, "LIC-", cfg.License.KeyPrefix)
	assert.Equal(t, "X-Custom-Key", cfg.License.HeaderName)
	assert.Equal(t, 30*time.Second, cfg.License.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.License.FailureCacheTTL)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "token", cfg.Auth.CookieName)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
license:
  strategy: prefix
  key: GATE-FROM-FILE
`), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	t.Setenv("APPGATE_LICENSE_KEY", "GATE-FROM-ENV")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StrategyPrefix, cfg.License.Strategy, "file value survives env processing")
	assert.Equal(t, "GATE-FROM-ENV", cfg.License.Key, "env value wins over file")
}

func TestValidateNormalizesLoggingFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidateDefaultsSessionTTL(t *testing.T) {
	cfg := Default()
	cfg.Auth.SessionTTL = 0

	require.NoError(t, cfg.validate())
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
}

func TestIsProductionCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Environment = "Production"
	assert.True(t, cfg.IsProduction())
}
