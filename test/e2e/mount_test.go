package e2e

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mntfs/internal/protocol/mount"
	"github.com/marmos91/mntfs/internal/protocol/nfs"
	"github.com/marmos91/mntfs/internal/protocol/rpc"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// mnt performs the MNT handshake and returns the root file handle.
func mnt(t *testing.T, tc *TestContext) []byte {
	t.Helper()

	reply := tc.MountCall(mount.ProcMnt, xdrString(exportPath))
	require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
	require.Equal(t, uint32(mount.MNT3OK), reply.Status())

	r := bytes.NewReader(reply.Results[4:])
	handle := readOpaque(t, r)
	require.Len(t, handle, nfs.HandleSize)
	return handle
}

func TestMount(t *testing.T) {
	tc := newTestContext(t)

	t.Run("MntHandsOutRootHandle", func(t *testing.T) {
		handle := mnt(t, tc)

		id, err := nfs.DecodeHandle(handle)
		require.NoError(t, err)
		assert.Equal(t, mtab.RootID, id)
	})

	t.Run("MntRejectsUnknownPath", func(t *testing.T) {
		reply := tc.MountCall(mount.ProcMnt, xdrString("/not-exported"))
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
		assert.Equal(t, uint32(mount.MNT3ErrNoEnt), reply.Status())
	})

	t.Run("ExportListsTheSingleShare", func(t *testing.T) {
		reply := tc.MountCall(mount.ProcExport, nil)
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)

		r := bytes.NewReader(reply.Results)
		var follows uint32
		require.NoError(t, binary.Read(r, binary.BigEndian, &follows))
		require.Equal(t, uint32(1), follows)
		assert.Equal(t, exportPath, string(readOpaque(t, r)))
	})
}

func TestMountRegistry(t *testing.T) {
	tc := newTestContext(t)

	mnt(t, tc)

	t.Run("DumpShowsClient", func(t *testing.T) {
		reply := tc.MountCall(mount.ProcDump, nil)
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)

		r := bytes.NewReader(reply.Results)
		var follows uint32
		require.NoError(t, binary.Read(r, binary.BigEndian, &follows))
		require.Equal(t, uint32(1), follows)
		assert.Equal(t, "e2e-client", string(readOpaque(t, r)))
		assert.Equal(t, exportPath, string(readOpaque(t, r)))
	})

	t.Run("UmntClearsClient", func(t *testing.T) {
		reply := tc.MountCall(mount.ProcUmnt, xdrString(exportPath))
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)

		reply = tc.MountCall(mount.ProcDump, nil)
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)

		r := bytes.NewReader(reply.Results)
		var follows uint32
		require.NoError(t, binary.Read(r, binary.BigEndian, &follows))
		assert.Equal(t, uint32(0), follows)
	})
}
