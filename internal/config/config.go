package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/folio/internal/core"
	"github.com/spf13/viper"
)

// DefaultFailureMessage is the advisory shown when a check fails.
const DefaultFailureMessage = "Unable to fetch portfolio health score. Please try again."

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Message string        `mapstructure:"message"`
}

// APIConfig describes the external scoring API.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Path       string        `mapstructure:"path"`
	QueryParam string        `mapstructure:"query_param"`
	Timeout    time.Duration `mapstructure:"timeout"` // 0 leaves the transport default
	Debug      bool          `mapstructure:"debug"`
}

type ServerConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	APIKey      string        `mapstructure:"api_key"`
	MaxSessions int           `mapstructure:"max_sessions"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ArchiveConfig controls the settled-check archive.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Load builds the configuration from Defaults, the optional file at path and
// FOLIO_* environment variables, in increasing precedence. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so env overrides apply to keys the file omits.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.path", d.API.Path)
	v.SetDefault("api.query_param", d.API.QueryParam)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.debug", d.API.Debug)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("archive.enabled", d.Archive.Enabled)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("archive.s3.bucket", d.Archive.S3.Bucket)
	v.SetDefault("archive.s3.endpoint", d.Archive.S3.Endpoint)
	v.SetDefault("archive.s3.region", d.Archive.S3.Region)
	v.SetDefault("archive.s3.access_key", d.Archive.S3.AccessKey)
	v.SetDefault("archive.s3.secret_key", d.Archive.S3.SecretKey)
	v.SetDefault("archive.s3.prefix", d.Archive.S3.Prefix)

	v.SetDefault("message", d.Message)
}

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Missing files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8000",
			Path:       "/health_score",
			QueryParam: "holdings",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			MaxSessions: 1000,
			SessionTTL:  30 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "./data/checks",
		},
		Message: DefaultFailureMessage,
	}
}

// Endpoint returns the full URL of the scoring endpoint without query.
func (a APIConfig) Endpoint() string {
	return strings.TrimSuffix(a.BaseURL, "/") + "/" + strings.TrimPrefix(a.Path, "/")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxSessions < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_sessions must be positive, got %d", c.Server.MaxSessions))
	}

	if c.API.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("api base_url required"))
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api base_url must be an absolute URL, got %q", c.API.BaseURL))
	}
	if c.API.QueryParam == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("api query_param required"))
	}
	if c.API.Timeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api timeout cannot be negative, got %s", c.API.Timeout))
	}

	if c.Message == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("failure message cannot be empty"))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required when type is localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive s3 bucket required when type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	return nil
}
