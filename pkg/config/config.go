package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/storage"
)

// EnvPrefix prefixes every environment variable read by hub
const EnvPrefix = "HUB"

// Config holds all application configuration
type Config struct {
	// Project whose plugins are assembled
	ProjectRoot string `mapstructure:"project_root"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Assembly configuration
	Assembly AssemblyConfig `mapstructure:"assembly"`

	// Snapshot storage configuration
	Snapshot storage.Config `mapstructure:"snapshot"`

	// Observability configuration
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds inspection API server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AssemblyConfig holds container assembly settings. Relative paths are
// resolved against the project root.
type AssemblyConfig struct {
	DIRoot       string   `mapstructure:"di_root"` // Sources of the Hub_Di_ namespace
	DIExt        string   `mapstructure:"di_ext"`
	CoreRoot     string   `mapstructure:"core_root"` // Sources of the Hub_Core_ namespace
	CoreExt      string   `mapstructure:"core_ext"`
	SearchDirs   []string `mapstructure:"search_dirs"`
	LegacyParser bool     `mapstructure:"legacy_parser"`
	LoggerChunk  bool     `mapstructure:"logger_chunk"`
	CacheSize    int      `mapstructure:"cache_size"`  // Resolver path cache entries
	Concurrency  int      `mapstructure:"concurrency"` // Descriptor reads in parallel, 0 means GOMAXPROCS
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string                   `mapstructure:"log_level"`
	LogFormat      string                   `mapstructure:"log_format"`
	MetricsEnabled bool                     `mapstructure:"metrics_enabled"`
	OTel           observability.OTelConfig `mapstructure:"otel"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() Config {
	return Config{
		ProjectRoot: ".",
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Assembly: AssemblyConfig{
			DIRoot:       filepath.Join("node_modules", "@hub", "di", "src"),
			DIExt:        "js",
			CoreRoot:     filepath.Join("node_modules", "@hub", "core", "src"),
			CoreExt:      "mjs",
			SearchDirs:   []string{"plugins", "node_modules"},
			LegacyParser: true,
			LoggerChunk:  true,
			CacheSize:    1024,
		},
		Snapshot: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
			OTel: observability.OTelConfig{
				Enabled:        false,
				Endpoint:       "localhost:4317",
				ServiceName:    "hub",
				ServiceVersion: "dev",
				Insecure:       true,
				SampleRatio:    1,
			},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("project_root", d.ProjectRoot)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("assembly.di_root", d.Assembly.DIRoot)
	v.SetDefault("assembly.di_ext", d.Assembly.DIExt)
	v.SetDefault("assembly.core_root", d.Assembly.CoreRoot)
	v.SetDefault("assembly.core_ext", d.Assembly.CoreExt)
	v.SetDefault("assembly.search_dirs", d.Assembly.SearchDirs)
	v.SetDefault("assembly.legacy_parser", d.Assembly.LegacyParser)
	v.SetDefault("assembly.logger_chunk", d.Assembly.LoggerChunk)
	v.SetDefault("assembly.cache_size", d.Assembly.CacheSize)
	v.SetDefault("assembly.concurrency", d.Assembly.Concurrency)

	v.SetDefault("snapshot.backend", d.Snapshot.Backend)
	v.SetDefault("snapshot.dir", d.Snapshot.Dir)
	v.SetDefault("snapshot.redis_url", d.Snapshot.RedisURL)
	v.SetDefault("snapshot.redis_password", d.Snapshot.RedisPassword)
	v.SetDefault("snapshot.redis_db", d.Snapshot.RedisDB)
	v.SetDefault("snapshot.redis_max_retries", d.Snapshot.RedisMaxRetries)
	v.SetDefault("snapshot.redis_pool_size", d.Snapshot.RedisPoolSize)
	v.SetDefault("snapshot.ttl", d.Snapshot.TTL)
	v.SetDefault("snapshot.l1_cache_size", d.Snapshot.L1CacheSize)

	v.SetDefault("observability.log_level", d.Observability.LogLevel)
	v.SetDefault("observability.log_format", d.Observability.LogFormat)
	v.SetDefault("observability.metrics_enabled", d.Observability.MetricsEnabled)
	v.SetDefault("observability.otel.enabled", d.Observability.OTel.Enabled)
	v.SetDefault("observability.otel.endpoint", d.Observability.OTel.Endpoint)
	v.SetDefault("observability.otel.service_name", d.Observability.OTel.ServiceName)
	v.SetDefault("observability.otel.service_version", d.Observability.OTel.ServiceVersion)
	v.SetDefault("observability.otel.insecure", d.Observability.OTel.Insecure)
	v.SetDefault("observability.otel.sample_ratio", d.Observability.OTel.SampleRatio)
}

// NewViper returns a viper instance carrying hub defaults and HUB_* environment
// binding. file names an explicit config file; empty looks for hub.yaml in the
// working directory.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("hub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// Load reads the config file, if any, and decodes v into a validated Config.
// A missing hub.yaml is not an error; a missing explicit file is.
func Load(v *viper.Viper) (*Config, error) {
	if file := v.ConfigFileUsed(); file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	cfg.ProjectRoot = root

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfig loads configuration from hub.yaml and the environment
func LoadConfig() (*Config, error) {
	return Load(NewViper(""))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ProjectRoot == "" {
		return fmt.Errorf("project root is required")
	}

	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	// Validate assembly config
	if c.Assembly.DIRoot == "" || c.Assembly.CoreRoot == "" {
		return fmt.Errorf("runtime source roots are required")
	}
	if c.Assembly.CacheSize < 0 {
		return fmt.Errorf("assembly cache size must not be negative")
	}
	if c.Assembly.Concurrency < 0 {
		return fmt.Errorf("assembly concurrency must not be negative")
	}

	// Validate snapshot config based on backend
	switch c.Snapshot.Backend {
	case "", "none":
	case "file":
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot dir is required for file backend")
		}
	case "redis":
		if c.Snapshot.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis backend")
		}
	default:
		return fmt.Errorf("invalid snapshot backend: %s (must be none, file, or redis)", c.Snapshot.Backend)
	}

	// Validate observability config
	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "off":
	default:
		return fmt.Errorf("invalid log level: %s", c.Observability.LogLevel)
	}
	if _, err := observability.ParseLogFormat(c.Observability.LogFormat); err != nil {
		return err
	}
	if c.Observability.OTel.Enabled {
		if c.Observability.OTel.Endpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTel.ServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if r := c.Observability.OTel.SampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1, got %v", r)
		}
	}

	return nil
}

// Path resolves p against the project root unless it is absolute
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.ProjectRoot, p)
}

// LogLevel returns the configured log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLogLevel(c.Observability.LogLevel)
}

// LogFormat returns the configured log encoding, JSON when unset or invalid
func (c *Config) LogFormat() observability.LogFormat {
	f, err := observability.ParseLogFormat(c.Observability.LogFormat)
	if err != nil {
		return observability.FormatJSON
	}
	return f
}
