package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	adapternfs "github.com/marmos91/mntfs/pkg/adapter/nfs"
	"github.com/marmos91/mntfs/pkg/mtab"
	"github.com/marmos91/mntfs/pkg/mtab/cache"
	"github.com/marmos91/mntfs/pkg/mtab/memory"
	"github.com/marmos91/mntfs/pkg/mtab/proc"
)

// procOptions is the decoded mounts.proc section.
type procOptions struct {
	PID string `mapstructure:"pid"`
}

// memoryOptions is the decoded mounts.memory section.
type memoryOptions struct {
	NamespaceID uint64 `mapstructure:"namespace_id"`
	Capacity    int    `mapstructure:"capacity"`
}

// BuildView constructs the mount table view from the configuration,
// selecting the provider named by mounts.source.
func BuildView(cfg *Config) (*mtab.View, error) {
	resolver, table, err := buildProvider(&cfg.Mounts)
	if err != nil {
		return nil, err
	}

	view, err := mtab.New(resolver, table, mtab.Options{
		IDOffset: cfg.Export.IDOffset,
		NameMax:  cfg.Export.NameMax,
	})
	if err != nil {
		return nil, fmt.Errorf("build view: %w", err)
	}
	return view, nil
}

func buildProvider(cfg *MountsConfig) (mtab.Resolver, mtab.Table, error) {
	switch cfg.Source {
	case "proc":
		var opts procOptions
		if err := mapstructure.Decode(cfg.Proc, &opts); err != nil {
			return nil, nil, fmt.Errorf("decode mounts.proc: %w", err)
		}
		return proc.NewResolver(opts.PID), proc.NewTable(opts.PID), nil

	case "memory":
		var opts memoryOptions
		if err := mapstructure.Decode(cfg.Memory, &opts); err != nil {
			return nil, nil, fmt.Errorf("decode mounts.memory: %w", err)
		}
		store := memory.NewStore(memory.Options{
			NamespaceID: opts.NamespaceID,
			Capacity:    opts.Capacity,
		})
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown mounts source %q", cfg.Source)
	}
}

// BuildEntryCache constructs the lookup entry cache.
func BuildEntryCache(cfg *Config) *cache.EntryCache {
	return cache.New(cache.Config{
		Enabled:    cfg.Cache.Enabled,
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})
}

// BuildAdapterConfig maps the server section onto the NFS adapter
// configuration.
func BuildAdapterConfig(cfg *Config) adapternfs.Config {
	return adapternfs.Config{
		Host:              cfg.Server.BindAddress,
		Port:              cfg.Server.Port,
		MaxConnections:    cfg.Server.MaxConnections,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.GracefulTimeout,
		RequestsPerSecond: cfg.Server.MaxRequestsPerSecond,
	}
}
