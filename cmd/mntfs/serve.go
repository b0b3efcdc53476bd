package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/internal/protocol/mount"
	"github.com/marmos91/mntfs/internal/protocol/nfs"
	"github.com/marmos91/mntfs/internal/server"
	adapternfs "github.com/marmos91/mntfs/pkg/adapter/nfs"
	"github.com/marmos91/mntfs/pkg/config"
	"github.com/marmos91/mntfs/pkg/metrics"
	"github.com/marmos91/mntfs/pkg/metrics/prometheus"
	"github.com/marmos91/mntfs/pkg/mtab"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the NFS server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("config file (default %s)", config.GetDefaultConfigPath()))

	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger.SetLevel(cfg.Log.Level)

	fmt.Println("mntfs - mount table NFS server")
	logger.Info("Log level set to: %s", cfg.Log.Level)
	logger.Info("Export path: %s", cfg.Export.Path)
	logger.Info("Mount source: %s", cfg.Mounts.Source)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.ListenAddress)
		logger.Info("Metrics enabled on %s", cfg.Metrics.ListenAddress)
	}
	nfsMetrics := prometheus.NewNFSMetrics()

	view, err := config.BuildView(cfg)
	if err != nil {
		return fmt.Errorf("build mount view: %w", err)
	}

	entryCache := config.BuildEntryCache(cfg)
	if cfg.Cache.Enabled {
		logger.Info("Entry cache enabled (ttl %v, max %d entries)",
			cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}

	nfsHandler := nfs.NewHandler(view, entryCache, nfsMetrics)
	mountHandler := mount.NewHandler(cfg.Export.Path, nfs.EncodeHandle(mtab.RootID))
	engine := server.NewEngine(nfsHandler, mountHandler, nfsMetrics)

	adapter := adapternfs.New(config.BuildAdapterConfig(cfg), engine, nfsMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- adapter.Serve(ctx)
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Serve(); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on port %d. Press Ctrl+C to stop.", cfg.Server.Port)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
		}

	case err := <-serverDone:
		if err != nil {
			stopMetrics(metricsServer, cfg)
			return fmt.Errorf("server error: %w", err)
		}
	}

	stopMetrics(metricsServer, cfg)
	logger.Info("Server stopped")
	return nil
}

func stopMetrics(metricsServer *metrics.Server, cfg *config.Config) {
	if metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := metricsServer.Stop(ctx); err != nil {
		logger.Error("Metrics server shutdown error: %v", err)
	}
}
