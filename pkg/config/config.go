// Package config loads, defaults and validates the server configuration.
//
// Sources in order of precedence: environment variables (MNTFS_*), the
// configuration file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete mntfs configuration.
type Config struct {
	// Server contains the NFS listener settings
	Server ServerConfig `mapstructure:"server"`

	// Export describes the single exported filesystem
	Export ExportConfig `mapstructure:"export"`

	// Mounts selects and configures the mount table provider
	Mounts MountsConfig `mapstructure:"mounts"`

	// Cache configures the lookup entry cache
	Cache CacheConfig `mapstructure:"cache"`

	// Log controls log output
	Log LogConfig `mapstructure:"log"`

	// Metrics configures the optional metrics HTTP endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig contains the NFS listener settings.
type ServerConfig struct {
	// BindAddress is the address to listen on
	BindAddress string `mapstructure:"bind_address" validate:"omitempty,ip"`

	// Port is the NFS TCP port. 0 lets the OS pick one.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// MaxConnections limits concurrent clients. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// GracefulTimeout bounds the shutdown drain
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout" validate:"min=0"`

	// IdleTimeout closes connections idle for this long. 0 disables.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// MaxRequestsPerSecond throttles each connection. 0 disables.
	MaxRequestsPerSecond uint `mapstructure:"max_requests_per_second"`
}

// ExportConfig describes the exported filesystem.
type ExportConfig struct {
	// Path is the export path clients pass to MNT
	Path string `mapstructure:"path" validate:"required,startswith=/"`

	// IDOffset is the distance between mount ids and entry identifiers.
	// Must exceed the reserved identifier range.
	IDOffset uint64 `mapstructure:"id_offset" validate:"min=2"`

	// NameMax is the maximum accepted entry name length
	NameMax int `mapstructure:"name_max" validate:"min=1,max=4096"`
}

// MountsConfig selects the mount table provider.
//
// Only the section matching Source is used.
type MountsConfig struct {
	// Source selects the provider implementation
	Source string `mapstructure:"source" validate:"required,oneof=proc memory"`

	// Proc configures the procfs provider
	Proc map[string]any `mapstructure:"proc"`

	// Memory configures the in-memory provider
	Memory map[string]any `mapstructure:"memory"`
}

// CacheConfig configures the lookup entry cache.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl" validate:"min=0"`
	MaxEntries int           `mapstructure:"max_entries" validate:"min=0"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is the minimum level to output
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// MetricsConfig configures the metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listen_address" validate:"omitempty,hostname_port"`
}

// Load reads the configuration from file and environment, applies defaults
// and validates the result.
//
// An empty configPath searches the default location; a missing file is not
// an error, defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// MNTFS_SERVER_PORT=2049 overrides server.port
	v.SetEnvPrefix("MNTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory, honoring
// XDG_CONFIG_HOME.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mntfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mntfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
