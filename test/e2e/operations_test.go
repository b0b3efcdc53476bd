package e2e

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mntfs/internal/protocol/nfs"
	"github.com/marmos91/mntfs/internal/protocol/rpc"
)

// lookupArgs encodes a LOOKUP request body.
func lookupArgs(dirHandle []byte, name string) []byte {
	var buf bytes.Buffer
	buf.Write(xdrOpaque(dirHandle))
	buf.Write(xdrString(name))
	return buf.Bytes()
}

// readArgs encodes a READ request body.
func readArgs(handle []byte, offset uint64, count uint32) []byte {
	var buf bytes.Buffer
	buf.Write(xdrOpaque(handle))
	_ = binary.Write(&buf, binary.BigEndian, offset)
	_ = binary.Write(&buf, binary.BigEndian, count)
	return buf.Bytes()
}

// readdirArgs encodes a READDIR request body.
func readdirArgs(dirHandle []byte, cookie uint64, count uint32) []byte {
	var buf bytes.Buffer
	buf.Write(xdrOpaque(dirHandle))
	_ = binary.Write(&buf, binary.BigEndian, cookie)
	_ = binary.Write(&buf, binary.BigEndian, uint64(0)) // cookieverf
	_ = binary.Write(&buf, binary.BigEndian, count)
	return buf.Bytes()
}

func TestLookupAndReadLink(t *testing.T) {
	tc := newTestContext(t)
	require.NoError(t, tc.Store.Mount(42, "/mnt/data"))

	root := mnt(t, tc)

	reply := tc.NFSCall(nfs.ProcLookup, lookupArgs(root, "42"))
	require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
	require.Equal(t, uint32(nfs.NFS3OK), reply.Status())

	r := bytes.NewReader(reply.Results[4:])
	linkHandle := readOpaque(t, r)
	require.Len(t, linkHandle, nfs.HandleSize)

	reply = tc.NFSCall(nfs.ProcReadLink, xdrOpaque(linkHandle))
	require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
	require.Equal(t, uint32(nfs.NFS3OK), reply.Status())

	// status, post_op_attr, then the target path.
	r = bytes.NewReader(reply.Results[4:])
	var attrFollows uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &attrFollows))
	if attrFollows == 1 {
		attrs := make([]byte, 84)
		require.NoError(t, binary.Read(r, binary.BigEndian, &attrs))
	}
	assert.Equal(t, "/mnt/data", string(readOpaque(t, r)))
}

func TestLookupMisses(t *testing.T) {
	tc := newTestContext(t)
	require.NoError(t, tc.Store.Mount(42, "/mnt/data"))

	root := mnt(t, tc)

	t.Run("UnknownID", func(t *testing.T) {
		reply := tc.NFSCall(nfs.ProcLookup, lookupArgs(root, "7"))
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
		assert.Equal(t, uint32(nfs.NFS3ErrNoEnt), reply.Status())
	})

	t.Run("LeadingZeroSpelling", func(t *testing.T) {
		reply := tc.NFSCall(nfs.ProcLookup, lookupArgs(root, "042"))
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
		assert.Equal(t, uint32(nfs.NFS3ErrNoEnt), reply.Status())
	})

	t.Run("UnmountedEntryVanishes", func(t *testing.T) {
		reply := tc.NFSCall(nfs.ProcLookup, lookupArgs(root, "42"))
		require.Equal(t, uint32(nfs.NFS3OK), reply.Status())

		tc.Store.Unmount(42)

		reply = tc.NFSCall(nfs.ProcLookup, lookupArgs(root, "42"))
		assert.Equal(t, uint32(nfs.NFS3ErrNoEnt), reply.Status())
	})
}

func TestReadDirOverWire(t *testing.T) {
	tc := newTestContext(t)
	for _, id := range []uint64{10, 20, 30} {
		require.NoError(t, tc.Store.Mount(id, "/mnt"))
	}

	root := mnt(t, tc)

	reply := tc.NFSCall(nfs.ProcReadDir, readdirArgs(root, 0, 4096))
	require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
	require.Equal(t, uint32(nfs.NFS3OK), reply.Status())

	r := bytes.NewReader(reply.Results[4:])

	var attrFollows uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &attrFollows))
	if attrFollows == 1 {
		attrs := make([]byte, 84)
		require.NoError(t, binary.Read(r, binary.BigEndian, &attrs))
	}

	var cookieVerf uint64
	require.NoError(t, binary.Read(r, binary.BigEndian, &cookieVerf))

	var names []string
	for {
		var follows uint32
		require.NoError(t, binary.Read(r, binary.BigEndian, &follows))
		if follows == 0 {
			break
		}
		var fileid uint64
		require.NoError(t, binary.Read(r, binary.BigEndian, &fileid))
		names = append(names, string(readOpaque(t, r)))
		var cookie uint64
		require.NoError(t, binary.Read(r, binary.BigEndian, &cookie))
	}

	var eof uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &eof))
	assert.Equal(t, uint32(1), eof)
	assert.Equal(t, []string{".", "..", "10", "20", "30"}, names)
}

func TestGetAttrAndAccessOverWire(t *testing.T) {
	tc := newTestContext(t)
	root := mnt(t, tc)

	t.Run("GetAttr", func(t *testing.T) {
		reply := tc.NFSCall(nfs.ProcGetAttr, xdrOpaque(root))
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
		require.Equal(t, uint32(nfs.NFS3OK), reply.Status())
		assert.Equal(t, uint32(nfs.NF3Dir), binary.BigEndian.Uint32(reply.Results[4:8]))
	})

	t.Run("Access", func(t *testing.T) {
		var args bytes.Buffer
		args.Write(xdrOpaque(root))
		_ = binary.Write(&args, binary.BigEndian, uint32(0xffffffff))

		reply := tc.NFSCall(nfs.ProcAccess, args.Bytes())
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
		require.Equal(t, uint32(nfs.NFS3OK), reply.Status())

		// status, post_op_attr, access bits.
		r := bytes.NewReader(reply.Results[4:])
		var attrFollows uint32
		require.NoError(t, binary.Read(r, binary.BigEndian, &attrFollows))
		if attrFollows == 1 {
			attrs := make([]byte, 84)
			require.NoError(t, binary.Read(r, binary.BigEndian, &attrs))
		}
		var access uint32
		require.NoError(t, binary.Read(r, binary.BigEndian, &access))
		assert.Equal(t, uint32(nfs.AccessRead|nfs.AccessLookup|nfs.AccessExecute), access)
	})

	t.Run("FSInfo", func(t *testing.T) {
		reply := tc.NFSCall(nfs.ProcFSInfo, xdrOpaque(root))
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
		assert.Equal(t, uint32(nfs.NFS3OK), reply.Status())
	})

	t.Run("Null", func(t *testing.T) {
		reply := tc.NFSCall(nfs.ProcNull, nil)
		require.Equal(t, uint32(rpc.AcceptSuccess), reply.AcceptStat)
		assert.Empty(t, reply.Results)
	})
}
