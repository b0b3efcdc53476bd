// Package nfs provides the TCP adapter that serves the NFS and MOUNT
// programs on one listener, the way kernel servers multiplex both on the
// standard port.
package nfs

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/internal/ratelimiter"
	"github.com/marmos91/mntfs/internal/server"
	"github.com/marmos91/mntfs/pkg/metrics"
)

// Config holds the NFS adapter configuration.
type Config struct {
	// Host is the address to bind. Empty binds every interface.
	Host string `mapstructure:"host"`

	// Port is the TCP port to listen on. The standard NFS port is 2049;
	// 0 lets the OS pick one, which tests rely on.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// MaxConnections limits concurrent client connections. 0 means
	// unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// IdleTimeout closes connections with no traffic for this long.
	// 0 disables the idle check.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds the graceful drain; connections still active
	// after it are force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// RequestsPerSecond throttles each connection's sustained request
	// rate. 0 disables throttling.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the per-connection burst capacity when throttling.
	Burst uint `mapstructure:"burst"`
}

func (c *Config) applyDefaults() {
	if c.Port < 0 {
		c.Port = 2049
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.RequestsPerSecond > 0 && c.Burst == 0 {
		c.Burst = c.RequestsPerSecond * 2
	}
}

// Adapter serves the NFS and MOUNT programs over TCP.
//
// Shutdown flow: the listener closes first, in-flight requests observe the
// cancelled shutdown context, the drain waits up to ShutdownTimeout, and
// whatever remains is force-closed through the connection registry.
type Adapter struct {
	config Config
	engine *server.Engine

	listener net.Listener
	port     atomic.Int32

	metrics metrics.NFSMetrics

	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// connections maps connection id to net.Conn for forced closure.
	connections sync.Map

	connSemaphore chan struct{}

	shutdownOnce   sync.Once
	shutdown       chan struct{}
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// New builds an Adapter over a dispatch engine.
func New(config Config, engine *server.Engine, m metrics.NFSMetrics) *Adapter {
	config.applyDefaults()

	if m == nil {
		m = metrics.NewNoopNFSMetrics()
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("NFS connection limit: %d", config.MaxConnections)
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	a := &Adapter{
		config:         config,
		engine:         engine,
		metrics:        m,
		connSemaphore:  connSemaphore,
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
	a.port.Store(int32(config.Port))
	return a
}

// Serve starts the listener and blocks until shutdown.
func (a *Adapter) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.config.Host, a.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	a.listener = listener
	a.port.Store(int32(listener.Addr().(*net.TCPAddr).Port))
	logger.Info("NFS server listening on %s", listener.Addr())

	go func() {
		<-ctx.Done()
		a.initiateShutdown()
	}()

	for {
		if a.connSemaphore != nil {
			select {
			case a.connSemaphore <- struct{}{}:
			case <-a.shutdown:
				return a.drain()
			}
		}

		tcpConn, err := a.listener.Accept()
		if err != nil {
			if a.connSemaphore != nil {
				<-a.connSemaphore
			}
			select {
			case <-a.shutdown:
				return a.drain()
			default:
				logger.Debug("accept failed: %v", err)
				continue
			}
		}

		a.trackAndServe(tcpConn)
	}
}

func (a *Adapter) trackAndServe(tcpConn net.Conn) {
	connID := uuid.NewString()

	a.activeConns.Add(1)
	a.connCount.Add(1)
	a.connections.Store(connID, tcpConn)

	a.metrics.RecordConnectionAccepted()
	a.metrics.SetActiveConnections(a.connCount.Load())

	logger.Debug("connection %s accepted from %s (active: %d)",
		connID, tcpConn.RemoteAddr(), a.connCount.Load())

	var limiter *ratelimiter.RateLimiter
	if a.config.RequestsPerSecond > 0 {
		limiter = ratelimiter.New(a.config.RequestsPerSecond, a.config.Burst)
	}

	conn := server.NewConn(a.engine, tcpConn, limiter, a.config.IdleTimeout)

	go func() {
		defer func() {
			tcpConn.Close()
			a.connections.Delete(connID)
			a.activeConns.Done()
			a.connCount.Add(-1)
			if a.connSemaphore != nil {
				<-a.connSemaphore
			}

			a.metrics.RecordConnectionClosed()
			a.metrics.SetActiveConnections(a.connCount.Load())

			logger.Debug("connection %s closed (active: %d)", connID, a.connCount.Load())
		}()

		if err := conn.Serve(a.shutdownCtx); err != nil && a.shutdownCtx.Err() == nil {
			logger.Debug("connection %s ended: %v", connID, err)
		}
	}()
}

func (a *Adapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("NFS shutdown initiated")
		close(a.shutdown)
		if a.listener != nil {
			if err := a.listener.Close(); err != nil {
				logger.Debug("error closing listener: %v", err)
			}
		}
		a.cancelRequests()
	})
}

// drain waits for active connections to finish, force-closing the rest when
// the shutdown timeout expires.
func (a *Adapter) drain() error {
	active := a.connCount.Load()
	logger.Info("NFS shutdown: waiting for %d active connection(s) (timeout %v)",
		active, a.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		a.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("NFS shutdown complete")
		return nil
	case <-time.After(a.config.ShutdownTimeout):
		remaining := a.connCount.Load()
		a.forceCloseConnections()
		return fmt.Errorf("shutdown timeout: %d connection(s) force-closed", remaining)
	}
}

func (a *Adapter) forceCloseConnections() {
	a.connections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("error force-closing connection %v: %v", key, err)
		}
		return true
	})
}

// Stop initiates graceful shutdown and waits for the drain, bounded by the
// given context.
func (a *Adapter) Stop(ctx context.Context) error {
	a.initiateShutdown()

	done := make(chan struct{})
	go func() {
		a.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		remaining := a.connCount.Load()
		a.forceCloseConnections()
		logger.Warn("NFS stop cancelled with %d connection(s) active", remaining)
		return ctx.Err()
	}
}

// ActiveConnections reports the number of live connections.
func (a *Adapter) ActiveConnections() int32 {
	return a.connCount.Load()
}

// Port returns the bound TCP port once Serve has started, or the configured
// port before that.
func (a *Adapter) Port() int {
	return int(a.port.Load())
}

// Protocol implements adapter.Adapter.
func (a *Adapter) Protocol() string {
	return "NFS"
}
