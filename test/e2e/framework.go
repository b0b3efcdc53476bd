// Package e2e exercises the server over a real TCP connection with
// hand-framed RPC records, the way an NFS client on the wire would.
package e2e

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	xdr "github.com/rasky/go-xdr/xdr2"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mntfs/internal/protocol/mount"
	"github.com/marmos91/mntfs/internal/protocol/nfs"
	"github.com/marmos91/mntfs/internal/protocol/rpc"
	"github.com/marmos91/mntfs/internal/server"
	adapternfs "github.com/marmos91/mntfs/pkg/adapter/nfs"
	"github.com/marmos91/mntfs/pkg/mtab"
	"github.com/marmos91/mntfs/pkg/mtab/cache"
	"github.com/marmos91/mntfs/pkg/mtab/memory"
)

const exportPath = "/mntfs"

// TestContext holds a running server and a client connection to it.
type TestContext struct {
	t       *testing.T
	Store   *memory.Store
	adapter *adapternfs.Adapter
	conn    net.Conn
	cancel  context.CancelFunc
	done    chan error
	nextXID uint32
}

// newTestContext starts a server on a free port and connects to it. Cleanup
// runs automatically when the test finishes.
func newTestContext(t *testing.T) *TestContext {
	t.Helper()

	store := memory.NewStore(memory.Options{NamespaceID: 1})
	view, err := mtab.New(store, store, mtab.Options{})
	require.NoError(t, err)

	nfsHandler := nfs.NewHandler(view, cache.New(cache.DefaultConfig()), nil)
	mountHandler := mount.NewHandler(exportPath, nfs.EncodeHandle(mtab.RootID))
	engine := server.NewEngine(nfsHandler, mountHandler, nil)

	adapter := adapternfs.New(adapternfs.Config{
		Host:            "127.0.0.1",
		Port:            0,
		ShutdownTimeout: 2 * time.Second,
	}, engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- adapter.Serve(ctx)
	}()

	var conn net.Conn
	require.Eventually(t, func() bool {
		c, dialErr := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", adapter.Port()))
		if dialErr != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 10*time.Millisecond)

	tc := &TestContext{
		t:       t,
		Store:   store,
		adapter: adapter,
		conn:    conn,
		cancel:  cancel,
		done:    done,
		nextXID: 1,
	}
	t.Cleanup(tc.close)
	return tc
}

func (tc *TestContext) close() {
	tc.conn.Close()
	tc.cancel()
	if err := <-tc.done; err != nil {
		tc.t.Errorf("server shutdown: %v", err)
	}
}

// Reply is a parsed RPC reply.
type Reply struct {
	XID        uint32
	AcceptStat uint32

	// Results is the encoded procedure result after the reply header.
	Results []byte
}

// Status reads the leading status word of the results.
func (r *Reply) Status() uint32 {
	if len(r.Results) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(r.Results[:4])
}

// Call sends one framed call and reads the framed reply.
func (tc *TestContext) Call(program, version, procedure uint32, args []byte) *Reply {
	tc.t.Helper()

	xid := tc.nextXID
	tc.nextXID++

	call := rpc.CallMessage{
		XID:        xid,
		MsgType:    rpc.MsgCall,
		RPCVersion: 2,
		Program:    program,
		Version:    version,
		Procedure:  procedure,
		Cred:       unixCred(tc.t, "e2e-client"),
		Verf:       rpc.OpaqueAuth{Flavor: rpc.AuthNull, Body: []byte{}},
	}

	var body bytes.Buffer
	_, err := xdr.Marshal(&body, &call)
	require.NoError(tc.t, err)
	body.Write(args)

	frame := make([]byte, 4+body.Len())
	binary.BigEndian.PutUint32(frame, 0x80000000|uint32(body.Len()))
	copy(frame[4:], body.Bytes())

	_, err = tc.conn.Write(frame)
	require.NoError(tc.t, err)

	return tc.readReply()
}

// NFSCall sends an NFS v3 procedure call.
func (tc *TestContext) NFSCall(procedure uint32, args []byte) *Reply {
	tc.t.Helper()
	return tc.Call(rpc.ProgramNFS, rpc.NFSVersion3, procedure, args)
}

// MountCall sends a MOUNT v3 procedure call.
func (tc *TestContext) MountCall(procedure uint32, args []byte) *Reply {
	tc.t.Helper()
	return tc.Call(rpc.ProgramMount, rpc.MountVersion3, procedure, args)
}

func (tc *TestContext) readReply() *Reply {
	tc.t.Helper()

	require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var header [4]byte
	_, err := io.ReadFull(tc.conn, header[:])
	require.NoError(tc.t, err)

	length := binary.BigEndian.Uint32(header[:]) & 0x7fffffff
	data := make([]byte, length)
	_, err = io.ReadFull(tc.conn, data)
	require.NoError(tc.t, err)

	require.GreaterOrEqual(tc.t, len(data), 24)
	return &Reply{
		XID:        binary.BigEndian.Uint32(data[:4]),
		AcceptStat: binary.BigEndian.Uint32(data[20:24]),
		Results:    data[24:],
	}
}

func unixCred(t *testing.T, machineName string) rpc.OpaqueAuth {
	t.Helper()

	cred := rpc.UnixCred{
		Stamp:       1,
		MachineName: machineName,
		UID:         0,
		GID:         0,
		GIDs:        []uint32{},
	}

	var buf bytes.Buffer
	_, err := xdr.Marshal(&buf, &cred)
	require.NoError(t, err)
	return rpc.OpaqueAuth{Flavor: rpc.AuthUnix, Body: buf.Bytes()}
}

// xdrOpaque encodes a variable-length opaque with padding.
func xdrOpaque(data []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
	for i := 0; i < (4-len(data)%4)%4; i++ {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// xdrString encodes a string as a padded opaque.
func xdrString(s string) []byte {
	return xdrOpaque([]byte(s))
}

// readOpaque consumes one padded opaque from a reader.
func readOpaque(t *testing.T, r *bytes.Reader) []byte {
	t.Helper()

	var length uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &length))
	data := make([]byte, length)
	_, err := io.ReadFull(r, data)
	require.NoError(t, err)
	for i := 0; i < (4-int(length)%4)%4; i++ {
		_, err := r.ReadByte()
		require.NoError(t, err)
	}
	return data
}
