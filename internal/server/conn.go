package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/internal/protocol/rpc"
	"github.com/marmos91/mntfs/internal/ratelimiter"
)

// Conn runs the request loop for one accepted connection.
type Conn struct {
	engine      *Engine
	rwc         net.Conn
	limiter     *ratelimiter.RateLimiter
	idleTimeout time.Duration
}

// NewConn wraps an accepted connection. The limiter may be nil for an
// unthrottled connection; a zero idle timeout disables the read deadline.
func NewConn(engine *Engine, rwc net.Conn, limiter *ratelimiter.RateLimiter, idleTimeout time.Duration) *Conn {
	return &Conn{
		engine:      engine,
		rwc:         rwc,
		limiter:     limiter,
		idleTimeout: idleTimeout,
	}
}

// Serve reads records until the peer hangs up, the context is cancelled or
// the connection idles out. The caller closes the connection.
func (c *Conn) Serve(ctx context.Context) error {
	remote := c.rwc.RemoteAddr().String()
	logger.Debug("serving connection from %s", remote)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		message, err := c.readRecord()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("connection from %s closed by peer", remote)
				return nil
			}
			return err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		reply, err := c.engine.Handle(ctx, message)
		if err != nil {
			return err
		}
		if reply == nil {
			continue
		}

		if _, err := c.rwc.Write(reply); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
}

// readRecord reassembles one RPC record from its marked fragments.
func (c *Conn) readRecord() ([]byte, error) {
	var record []byte

	for {
		if c.idleTimeout > 0 {
			if err := c.rwc.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
				return nil, err
			}
		}

		var header [4]byte
		if _, err := io.ReadFull(c.rwc, header[:]); err != nil {
			return nil, err
		}

		raw := binary.BigEndian.Uint32(header[:])
		last := raw&0x80000000 != 0
		length := raw & 0x7FFFFFFF

		if length > rpc.MaxFragmentSize || uint32(len(record))+length > rpc.MaxFragmentSize {
			return nil, fmt.Errorf("record exceeds %d bytes", rpc.MaxFragmentSize)
		}

		fragment := make([]byte, length)
		if _, err := io.ReadFull(c.rwc, fragment); err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}
		record = append(record, fragment...)

		if last {
			return record, nil
		}
	}
}
