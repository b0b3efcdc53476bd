package mount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	return NewHandler("/mntfs", []byte{0, 0, 0, 0, 0, 0, 0, 1})
}

func TestMnt(t *testing.T) {
	ctx := context.Background()

	t.Run("GrantsKnownExport", func(t *testing.T) {
		h := newTestHandler()

		resp, err := h.Mnt(ctx, &MntRequest{Dirpath: "/mntfs", Hostname: "client1"})
		require.NoError(t, err)
		assert.Equal(t, uint32(MNT3OK), resp.Status)
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, resp.FileHandle)
		assert.Equal(t, h.AuthFlavors(), resp.AuthFlavors)
	})

	t.Run("RejectsUnknownExport", func(t *testing.T) {
		h := newTestHandler()

		resp, err := h.Mnt(ctx, &MntRequest{Dirpath: "/other", Hostname: "client1"})
		require.NoError(t, err)
		assert.Equal(t, uint32(MNT3ErrNoEnt), resp.Status)
		assert.Nil(t, resp.FileHandle)
	})
}

func TestDump(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyRegistry", func(t *testing.T) {
		h := newTestHandler()

		resp, err := h.Dump(ctx)
		require.NoError(t, err)
		assert.Empty(t, resp.Mounts)
	})

	t.Run("ListsMountedClientsSorted", func(t *testing.T) {
		h := newTestHandler()
		_, err := h.Mnt(ctx, &MntRequest{Dirpath: "/mntfs", Hostname: "zebra"})
		require.NoError(t, err)
		_, err = h.Mnt(ctx, &MntRequest{Dirpath: "/mntfs", Hostname: "alpha"})
		require.NoError(t, err)

		resp, err := h.Dump(ctx)
		require.NoError(t, err)
		require.Len(t, resp.Mounts, 2)
		assert.Equal(t, "alpha", resp.Mounts[0].Hostname)
		assert.Equal(t, "zebra", resp.Mounts[1].Hostname)
		assert.Equal(t, "/mntfs", resp.Mounts[0].Dirpath)
	})

	t.Run("FailedMntNotRegistered", func(t *testing.T) {
		h := newTestHandler()
		_, err := h.Mnt(ctx, &MntRequest{Dirpath: "/wrong", Hostname: "client1"})
		require.NoError(t, err)

		resp, err := h.Dump(ctx)
		require.NoError(t, err)
		assert.Empty(t, resp.Mounts)
	})
}

func TestUmnt(t *testing.T) {
	ctx := context.Background()

	t.Run("RemovesRegistryEntry", func(t *testing.T) {
		h := newTestHandler()
		_, err := h.Mnt(ctx, &MntRequest{Dirpath: "/mntfs", Hostname: "client1"})
		require.NoError(t, err)

		_, err = h.Umnt(ctx, &UmntRequest{Dirpath: "/mntfs", Hostname: "client1"})
		require.NoError(t, err)

		resp, err := h.Dump(ctx)
		require.NoError(t, err)
		assert.Empty(t, resp.Mounts)
	})

	t.Run("UnknownPathSucceeds", func(t *testing.T) {
		h := newTestHandler()

		_, err := h.Umnt(ctx, &UmntRequest{Dirpath: "/never-mounted", Hostname: "client1"})
		require.NoError(t, err)
	})
}

func TestUmntAll(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler()

	for i := 0; i < 3; i++ {
		_, err := h.Mnt(ctx, &MntRequest{Dirpath: "/mntfs", Hostname: "client1"})
		require.NoError(t, err)
	}
	_, err := h.Mnt(ctx, &MntRequest{Dirpath: "/mntfs", Hostname: "client2"})
	require.NoError(t, err)

	_, err = h.UmntAll(ctx, "client1")
	require.NoError(t, err)

	resp, err := h.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Mounts, 1)
	assert.Equal(t, "client2", resp.Mounts[0].Hostname)
}

func TestExport(t *testing.T) {
	h := newTestHandler()

	resp, err := h.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/mntfs"}, resp.Dirs)
}

func TestDecodeMntRequest(t *testing.T) {
	t.Run("ParsesPaddedPath", func(t *testing.T) {
		// "/mntfs" is 6 bytes, padded to 8.
		data := []byte{0, 0, 0, 6, '/', 'm', 'n', 't', 'f', 's', 0, 0}

		req, err := DecodeMntRequest(data)
		require.NoError(t, err)
		assert.Equal(t, "/mntfs", req.Dirpath)
	})

	t.Run("RejectsOverlongPath", func(t *testing.T) {
		data := []byte{0xff, 0xff, 0xff, 0xff}

		_, err := DecodeMntRequest(data)
		require.Error(t, err)
	})

	t.Run("RejectsTruncatedPath", func(t *testing.T) {
		data := []byte{0, 0, 0, 10, 'a', 'b'}

		_, err := DecodeMntRequest(data)
		require.Error(t, err)
	})
}

func TestMntResponseEncode(t *testing.T) {
	t.Run("SuccessCarriesHandleAndFlavors", func(t *testing.T) {
		resp := &MntResponse{
			Status:      MNT3OK,
			FileHandle:  []byte{0, 0, 0, 0, 0, 0, 0, 1},
			AuthFlavors: []uint32{0, 1},
		}

		data, err := resp.Encode()
		require.NoError(t, err)
		// status + handle length + 8-byte handle + flavor count + 2 flavors
		assert.Len(t, data, 4+4+8+4+8)
	})

	t.Run("FailureIsStatusOnly", func(t *testing.T) {
		resp := &MntResponse{Status: MNT3ErrNoEnt}

		data, err := resp.Encode()
		require.NoError(t, err)
		assert.Len(t, data, 4)
	})
}
