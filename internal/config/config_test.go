package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
api:
  base_url: "http://scores.internal:9000"
  timeout: 5s

server:
  host: "127.0.0.1"
  port: 9090

archive:
  enabled: true
  type: localfs
  path: "/tmp/folio/checks"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.API.Timeout)
	}
	if cfg.Archive.Path != "/tmp/folio/checks" {
		t.Errorf("unexpected archive path %s", cfg.Archive.Path)
	}

	// Keys absent from the file keep their defaults
	if cfg.API.Path != "/health_score" {
		t.Errorf("expected default path, got %s", cfg.API.Path)
	}
	if cfg.API.QueryParam != "holdings" {
		t.Errorf("expected default query param, got %s", cfg.API.QueryParam)
	}
	if cfg.Message != DefaultFailureMessage {
		t.Errorf("expected default message, got %q", cfg.Message)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("FOLIO_TEST_KEY", "secret")

	content := []byte(`
server:
  api_key: "${FOLIO_TEST_KEY}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("expected expanded api key, got %q", cfg.Server.APIKey)
	}
}

func TestLoad_EnvOverridesKeyAbsentFromFile(t *testing.T) {
	t.Setenv("FOLIO_API_BASE_URL", "http://scoring.internal:9999")
	t.Setenv("FOLIO_SERVER_SESSION_TTL", "5m")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("server:\n  port: 9100\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.API.BaseURL != "http://scoring.internal:9999" {
		t.Errorf("expected base_url from env, got %q", cfg.API.BaseURL)
	}
	if cfg.Server.SessionTTL != 5*time.Minute {
		t.Errorf("expected session_ttl from env, got %s", cfg.Server.SessionTTL)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port from file, got %d", cfg.Server.Port)
	}
}

func TestLoad_EnvOverridesFileValue(t *testing.T) {
	t.Setenv("FOLIO_SERVER_PORT", "7000")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("server:\n  port: 9100\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected env to win over file, got %d", cfg.Server.Port)
	}
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv("FOLIO_ARCHIVE_S3_BUCKET", "folio-checks")
	t.Setenv("FOLIO_MESSAGE", "Scoring is unavailable.")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := Defaults()
	want.Archive.S3.Bucket = "folio-checks"
	want.Message = "Scoring is unavailable."
	if *cfg != *want {
		t.Errorf("unexpected config:\n got %+v\nwant %+v", *cfg, *want)
	}
}

func TestLoad_DotEnvFeedsOverrides(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("FOLIO_API_QUERY_PARAM=tickers\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FOLIO_API_QUERY_PARAM") })

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.API.QueryParam != "tickers" {
		t.Errorf("expected query param from .env, got %q", cfg.API.QueryParam)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("FOLIO_DOTENV_VALUE=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FOLIO_DOTENV_VALUE") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if os.Getenv("FOLIO_DOTENV_VALUE") != "loaded" {
		t.Error("expected variable from .env")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if got := cfg.API.Endpoint(); got != "http://127.0.0.1:8000/health_score" {
		t.Errorf("unexpected default endpoint %s", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestAPIConfig_Endpoint(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://h:1", "/health_score", "http://h:1/health_score"},
		{"http://h:1/", "health_score", "http://h:1/health_score"},
		{"http://h:1/v2/", "/score", "http://h:1/v2/score"},
	}
	for _, tt := range tests {
		got := APIConfig{BaseURL: tt.base, Path: tt.path}.Endpoint()
		if got != tt.want {
			t.Errorf("Endpoint(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "invalid port - zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: core.ErrConfigInvalid},
		{name: "invalid port - too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: core.ErrConfigInvalid},
		{name: "no sessions", mutate: func(c *Config) { c.Server.MaxSessions = 0 }, wantErr: core.ErrConfigInvalid},
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: core.ErrConfigMissing},
		{name: "relative base url", mutate: func(c *Config) { c.API.BaseURL = "scores/api" }, wantErr: core.ErrConfigInvalid},
		{name: "empty query param", mutate: func(c *Config) { c.API.QueryParam = "" }, wantErr: core.ErrConfigMissing},
		{name: "negative timeout", mutate: func(c *Config) { c.API.Timeout = -time.Second }, wantErr: core.ErrConfigInvalid},
		{name: "empty message", mutate: func(c *Config) { c.Message = "" }, wantErr: core.ErrConfigMissing},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Type = "s3"
			},
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "unknown archive type",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Type = "ftp"
			},
			wantErr: core.ErrConfigInvalid,
		},
		{
			name: "disabled archive is not checked",
			mutate: func(c *Config) {
				c.Archive.Type = "ftp"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
