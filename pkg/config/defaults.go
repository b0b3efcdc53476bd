package config

import (
	"strings"
	"time"

	"github.com/marmos91/mntfs/pkg/mtab"
	"github.com/marmos91/mntfs/pkg/mtab/proc"
)

// DefaultExportPath is the export path clients mount.
const DefaultExportPath = "/mntfs"

// ApplyDefaults fills in zero values with the production defaults. Explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyExportDefaults(&cfg.Export)
	applyMountsDefaults(&cfg.Mounts)
	applyCacheDefaults(&cfg.Cache)
	applyLogDefaults(&cfg.Log)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 2049
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
}

func applyExportDefaults(cfg *ExportConfig) {
	if cfg.Path == "" {
		cfg.Path = DefaultExportPath
	}
	if cfg.IDOffset == 0 {
		cfg.IDOffset = mtab.DefaultIDOffset
	}
	if cfg.NameMax == 0 {
		cfg.NameMax = mtab.DefaultNameMax
	}
}

func applyMountsDefaults(cfg *MountsConfig) {
	if cfg.Source == "" {
		cfg.Source = "proc"
	}
	if cfg.Proc == nil {
		cfg.Proc = make(map[string]any)
	}
	if _, ok := cfg.Proc["pid"]; !ok {
		cfg.Proc["pid"] = proc.DefaultPID
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	// Enabled stays as configured; false cannot be told apart from unset.
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 1024
	}
}

func applyLogDefaults(cfg *LogConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":9091"
	}
}

// GetDefaultConfig returns a Config with every default applied, used for
// sample file generation and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Cache: CacheConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
