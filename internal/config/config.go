// Package config loads settings for the wizard binaries from defaults, an
// optional config file, a .env file, USERWIZARD_ environment variables and
// command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. USERWIZARD_API_BASE_URL.
const EnvPrefix = "USERWIZARD"

// Config is the merged configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Form    FormConfig    `mapstructure:"form"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Schema is an OpenAPI document path or URL used to check payloads.
	// Empty uses the bundled document, "off" disables the check.
	Schema string `mapstructure:"schema"`
}

type FormConfig struct {
	MaxFiles int `mapstructure:"max_files"`
	// Definitions is a directory of form definition files. Empty uses the
	// bundled forms.
	Definitions string `mapstructure:"definitions"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	DB   string `mapstructure:"db"`
	// IDMinLength is the minimum length of generated userId values.
	IDMinLength int `mapstructure:"id_min_length"`
}

type StorageConfig struct {
	// Domains lists URL prefixes or hosts of already persisted files.
	Domains []string     `mapstructure:"domains"`
	Backend string       `mapstructure:"backend"`
	Local   LocalStorage `mapstructure:"local"`
	Minio   MinioStorage `mapstructure:"minio"`
	S3      S3Storage    `mapstructure:"s3"`
}

type LocalStorage struct {
	Root      string `mapstructure:"root"`
	PublicURL string `mapstructure:"public_url"`
}

type MinioStorage struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

type S3Storage struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PublicURL string `mapstructure:"public_url"`
}

// Storage backends.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
	BackendS3    = "s3"
)

var defaults = map[string]any{
	"api.base_url":             "http://localhost:8080",
	"api.timeout":              30 * time.Second,
	"api.schema":               "",
	"form.max_files":           3,
	"form.definitions":         "",
	"log.level":                "info",
	"log.format":               "console",
	"server.addr":              ":8080",
	"server.db":                "userwizard.db",
	"server.id_min_length":     6,
	"storage.domains":          []string{},
	"storage.backend":          BackendLocal,
	"storage.local.root":       "uploads",
	"storage.local.public_url": "http://localhost:8080/files",
	"storage.minio.endpoint":   "",
	"storage.minio.access_key": "",
	"storage.minio.secret_key": "",
	"storage.minio.bucket":     "",
	"storage.minio.use_ssl":    false,
	"storage.minio.public_url": "",
	"storage.s3.region":        "",
	"storage.s3.bucket":        "",
	"storage.s3.endpoint":      "",
	"storage.s3.access_key":    "",
	"storage.s3.secret_key":    "",
	"storage.s3.public_url":    "",
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"api-url":         "api.base_url",
	"api-timeout":     "api.timeout",
	"api-schema":      "api.schema",
	"max-files":       "form.max_files",
	"forms":           "form.definitions",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"addr":            "server.addr",
	"db":              "server.db",
	"storage-domain":  "storage.domains",
	"storage-backend": "storage.backend",
	"storage-root":    "storage.local.root",
	"public-url":      "storage.local.public_url",
}

// RegisterFlags adds the shared flags. Binaries add their own on top.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a config file (yaml, json or toml)")
	flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("api-url", "", "base URL of the user API")
	flags.Duration("api-timeout", 0, "timeout for user API calls (uploads are not bounded)")
	flags.String("api-schema", "", `OpenAPI document used to check payloads ("off" disables)`)
	flags.StringSlice("storage-domain", nil, "URL prefix or host of already persisted files (repeatable)")
	flags.Int("max-files", 0, "maximum staged files per multi-file field")
	flags.String("forms", "", "directory of form definitions")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or console")
}

// RegisterServerFlags adds the reference server flags.
func RegisterServerFlags(flags *pflag.FlagSet) {
	flags.String("addr", "", "listen address")
	flags.String("db", "", "sqlite database path")
	flags.String("storage-backend", "", "storage backend: local, minio or s3")
	flags.String("storage-root", "", "directory used by the local storage backend")
	flags.String("public-url", "", "public URL the local storage backend serves files from")
}

// Load merges every source. flags must already be parsed; only flags the user
// set override lower layers.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if flags != nil {
		if envFile, err := flags.GetString("env-file"); err == nil && envFile != "" {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := os.Getenv(EnvPrefix + "_CONFIG")
	if flags != nil {
		if path, err := flags.GetString("config"); err == nil && path != "" {
			configFile = path
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("config: bind --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Storage.Domains = splitList(cfg.Storage.Domains)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no binary can work with.
func (c *Config) Validate() error {
	if c.Form.MaxFiles < 1 {
		return fmt.Errorf("config: form.max_files must be at least 1, got %d", c.Form.MaxFiles)
	}
	switch c.Storage.Backend {
	case BackendLocal, BackendMinio, BackendS3:
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}

// PersistedDomains returns the configured storage domains, falling back to
// the public URL of the active storage backend.
func (c *Config) PersistedDomains() []string {
	if len(c.Storage.Domains) > 0 {
		return c.Storage.Domains
	}
	var public string
	switch c.Storage.Backend {
	case BackendMinio:
		public = c.Storage.Minio.PublicURL
	case BackendS3:
		public = c.Storage.S3.PublicURL
	default:
		public = c.Storage.Local.PublicURL
	}
	if public == "" {
		return nil
	}
	return []string{public}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
