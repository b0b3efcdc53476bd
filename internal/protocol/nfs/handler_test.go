package nfs

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mntfs/pkg/mtab"
	"github.com/marmos91/mntfs/pkg/mtab/cache"
	"github.com/marmos91/mntfs/pkg/mtab/memory"
)

func newTestHandler(t *testing.T) (*Handler, *memory.Store) {
	t.Helper()

	store := memory.NewStore(memory.Options{NamespaceID: 1})
	view, err := mtab.New(store, store, mtab.Options{})
	require.NoError(t, err)

	return NewHandler(view, cache.New(cache.DefaultConfig()), nil), store
}

func rootHandle() []byte {
	return EncodeHandle(mtab.RootID)
}

func TestHandle(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		h := EncodeHandle(1042)
		require.Len(t, h, HandleSize)

		id, err := DecodeHandle(h)
		require.NoError(t, err)
		assert.Equal(t, uint64(1042), id)
	})

	t.Run("RejectsWrongLength", func(t *testing.T) {
		_, err := DecodeHandle([]byte{1, 2, 3})
		require.Error(t, err)

		_, err = DecodeHandle(make([]byte, 16))
		require.Error(t, err)

		_, err = DecodeHandle(nil)
		require.Error(t, err)
	})
}

func TestGetAttr(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	t.Run("RootDirectory", func(t *testing.T) {
		resp, err := h.GetAttr(ctx, &GetAttrRequest{Handle: rootHandle()})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		require.NotNil(t, resp.Attr)
		assert.Equal(t, uint32(NF3Dir), resp.Attr.Type)
		assert.Equal(t, uint32(0o555), resp.Attr.Mode)
		assert.Equal(t, uint32(2), resp.Attr.Nlink)
	})

	t.Run("MountLinkWithoutLiveMount", func(t *testing.T) {
		// Attributes are identity, not liveness.
		resp, err := h.GetAttr(ctx, &GetAttrRequest{Handle: EncodeHandle(1042)})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		require.NotNil(t, resp.Attr)
		assert.Equal(t, uint32(NF3Lnk), resp.Attr.Type)
		assert.Equal(t, uint32(0o777), resp.Attr.Mode)
	})

	t.Run("MalformedHandle", func(t *testing.T) {
		resp, err := h.GetAttr(ctx, &GetAttrRequest{Handle: []byte{1, 2}})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrBadHandle), resp.Status)
	})
}

func TestLookup(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Mount(42, "/mnt/data"))

	t.Run("ResolvesLiveMount", func(t *testing.T) {
		resp, err := h.Lookup(ctx, &LookupRequest{DirHandle: rootHandle(), Filename: "42"})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)

		id, err := DecodeHandle(resp.FileHandle)
		require.NoError(t, err)
		assert.Equal(t, uint64(1042), id)
		require.NotNil(t, resp.Attr)
		assert.Equal(t, uint32(NF3Lnk), resp.Attr.Type)
		require.NotNil(t, resp.DirAttr)
	})

	t.Run("MissingMountIsNoEnt", func(t *testing.T) {
		resp, err := h.Lookup(ctx, &LookupRequest{DirHandle: rootHandle(), Filename: "7"})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNoEnt), resp.Status)
		assert.NotNil(t, resp.DirAttr)
	})

	t.Run("NonCanonicalNameIsNoEnt", func(t *testing.T) {
		resp, err := h.Lookup(ctx, &LookupRequest{DirHandle: rootHandle(), Filename: "042"})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNoEnt), resp.Status)
	})

	t.Run("OverlongNameIsNameTooLong", func(t *testing.T) {
		name := make([]byte, 300)
		for i := range name {
			name[i] = '1'
		}
		resp, err := h.Lookup(ctx, &LookupRequest{DirHandle: rootHandle(), Filename: string(name)})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNameTooLong), resp.Status)
	})

	t.Run("LookupInLinkIsNotDir", func(t *testing.T) {
		resp, err := h.Lookup(ctx, &LookupRequest{DirHandle: EncodeHandle(1042), Filename: "1"})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNotDir), resp.Status)
	})

	t.Run("MalformedHandle", func(t *testing.T) {
		resp, err := h.Lookup(ctx, &LookupRequest{DirHandle: []byte{1}, Filename: "42"})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrBadHandle), resp.Status)
	})
}

func TestAccess(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	t.Run("DirectoryGetsReadLookupExecute", func(t *testing.T) {
		resp, err := h.Access(ctx, &AccessRequest{Handle: rootHandle(), Access: 0xffffffff})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		assert.Equal(t, uint32(AccessRead|AccessLookup|AccessExecute), resp.Access)
	})

	t.Run("LinkGetsReadOnly", func(t *testing.T) {
		resp, err := h.Access(ctx, &AccessRequest{Handle: EncodeHandle(1042), Access: 0xffffffff})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		assert.Equal(t, uint32(AccessRead), resp.Access)
	})

	t.Run("AnswerMaskedByRequest", func(t *testing.T) {
		resp, err := h.Access(ctx, &AccessRequest{Handle: rootHandle(), Access: AccessLookup | AccessModify})
		require.NoError(t, err)
		assert.Equal(t, uint32(AccessLookup), resp.Access)
	})
}

func TestReadLink(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Mount(42, "/mnt/data"))

	t.Run("ResolvesTarget", func(t *testing.T) {
		resp, err := h.ReadLink(ctx, &ReadLinkRequest{Handle: EncodeHandle(1042)})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		assert.Equal(t, "/mnt/data", resp.Target)
	})

	t.Run("VanishedMountIsNoEnt", func(t *testing.T) {
		resp, err := h.ReadLink(ctx, &ReadLinkRequest{Handle: EncodeHandle(1099)})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNoEnt), resp.Status)
	})

	t.Run("DetachedMountIsNoEnt", func(t *testing.T) {
		require.NoError(t, store.Mount(7, "/mnt/race"))
		require.True(t, store.Detach(7))

		resp, err := h.ReadLink(ctx, &ReadLinkRequest{Handle: EncodeHandle(1007)})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNoEnt), resp.Status)
	})

	t.Run("DirectoryIsInval", func(t *testing.T) {
		resp, err := h.ReadLink(ctx, &ReadLinkRequest{Handle: rootHandle()})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrInval), resp.Status)
	})
}

func TestRead(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Mount(42, "/mnt/data"))

	t.Run("DirectoryIsIsDir", func(t *testing.T) {
		resp, err := h.Read(ctx, &ReadRequest{Handle: rootHandle(), Count: 512})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrIsDir), resp.Status)
	})

	t.Run("LinkIsInval", func(t *testing.T) {
		resp, err := h.Read(ctx, &ReadRequest{Handle: EncodeHandle(1042), Count: 512})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrInval), resp.Status)
	})
}

func TestReadDir(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	for _, id := range []uint64{10, 20, 30} {
		require.NoError(t, store.Mount(id, "/mnt"))
	}

	t.Run("FullListingFromStart", func(t *testing.T) {
		resp, err := h.ReadDir(ctx, &ReadDirRequest{DirHandle: rootHandle(), Count: 4096})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		assert.True(t, resp.Eof)
		require.Len(t, resp.Entries, 5)

		assert.Equal(t, ".", resp.Entries[0].Name)
		assert.Equal(t, uint64(cookieDot), resp.Entries[0].Cookie)
		assert.Equal(t, "..", resp.Entries[1].Name)
		assert.Equal(t, uint64(cookieDotDot), resp.Entries[1].Cookie)

		assert.Equal(t, "10", resp.Entries[2].Name)
		assert.Equal(t, uint64(1010), resp.Entries[2].Fileid)
		assert.Equal(t, uint64(3), resp.Entries[2].Cookie)
		assert.Equal(t, "30", resp.Entries[4].Name)
		assert.Equal(t, uint64(5), resp.Entries[4].Cookie)
	})

	t.Run("ResumeFromCookie", func(t *testing.T) {
		resp, err := h.ReadDir(ctx, &ReadDirRequest{DirHandle: rootHandle(), Cookie: 3, Count: 4096})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		assert.True(t, resp.Eof)
		require.Len(t, resp.Entries, 2)
		assert.Equal(t, "20", resp.Entries[0].Name)
		assert.Equal(t, "30", resp.Entries[1].Name)
	})

	t.Run("ResumeAfterDotDot", func(t *testing.T) {
		resp, err := h.ReadDir(ctx, &ReadDirRequest{DirHandle: rootHandle(), Cookie: cookieDotDot, Count: 4096})
		require.NoError(t, err)
		require.Len(t, resp.Entries, 3)
		assert.Equal(t, "10", resp.Entries[0].Name)
	})

	t.Run("SmallBudgetTruncates", func(t *testing.T) {
		resp, err := h.ReadDir(ctx, &ReadDirRequest{DirHandle: rootHandle(), Count: readdirOverhead + 2*entryOverhead + 16})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3OK), resp.Status)
		assert.False(t, resp.Eof)
		assert.NotEmpty(t, resp.Entries)
		assert.Less(t, len(resp.Entries), 5)

		// The listing resumes where it stopped.
		last := resp.Entries[len(resp.Entries)-1]
		resp2, err := h.ReadDir(ctx, &ReadDirRequest{DirHandle: rootHandle(), Cookie: last.Cookie, Count: 4096})
		require.NoError(t, err)
		assert.True(t, resp2.Eof)
		assert.Equal(t, 5, len(resp.Entries)+len(resp2.Entries))
	})

	t.Run("LinkHandleIsNotDir", func(t *testing.T) {
		resp, err := h.ReadDir(ctx, &ReadDirRequest{DirHandle: EncodeHandle(1010), Count: 4096})
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrNotDir), resp.Status)
	})

	t.Run("EmptyTableListsDotsOnly", func(t *testing.T) {
		empty, _ := newTestHandler(t)
		resp, err := empty.ReadDir(ctx, &ReadDirRequest{DirHandle: rootHandle(), Count: 4096})
		require.NoError(t, err)
		assert.True(t, resp.Eof)
		require.Len(t, resp.Entries, 2)
	})
}

func TestReadDirPlus(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Mount(10, "/mnt"))

	resp, err := h.ReadDirPlus(ctx, &ReadDirPlusRequest{
		DirHandle: rootHandle(),
		DirCount:  4096,
		MaxCount:  32768,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3OK), resp.Status)
	assert.True(t, resp.Eof)
	require.Len(t, resp.Entries, 3)

	link := resp.Entries[2]
	assert.Equal(t, "10", link.Name)
	require.NotNil(t, link.Attr)
	assert.Equal(t, uint32(NF3Lnk), link.Attr.Type)

	id, err := DecodeHandle(link.Handle)
	require.NoError(t, err)
	assert.Equal(t, uint64(1010), id)
}

func TestFSStat(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Mount(1, "/a"))
	require.NoError(t, store.Mount(2, "/b"))

	resp, err := h.FSStat(ctx, &FSStatRequest{Handle: rootHandle()})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3OK), resp.Status)

	// Two links plus the root directory.
	assert.Equal(t, uint64(3), resp.Tfiles)
	assert.Equal(t, uint64(0), resp.Ffiles)
}

func TestFSInfo(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := h.FSInfo(context.Background(), &FSInfoRequest{Handle: rootHandle()})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, uint32(MaxReadSize), resp.Rtmax)
	assert.Equal(t, uint32(FSFSymlink|FSFHomogen), resp.Properties)
}

func TestPathConf(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := h.PathConf(context.Background(), &PathConfRequest{Handle: rootHandle()})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, uint32(mtab.DefaultNameMax), resp.NameMax)
	assert.Equal(t, uint32(1), resp.LinkMax)
	assert.True(t, resp.NoTrunc)
}

func TestReadonly(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	readStatus := func(data []byte) uint32 {
		return binary.BigEndian.Uint32(data[:4])
	}

	t.Run("DefaultShape", func(t *testing.T) {
		data, err := h.Readonly(ctx, ProcWrite)
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrRofs), readStatus(data))
		// status + empty wcc_data
		assert.Len(t, data, 12)
	})

	t.Run("RenameCarriesTwoWcc", func(t *testing.T) {
		data, err := h.Readonly(ctx, ProcRename)
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrRofs), readStatus(data))
		assert.Len(t, data, 20)
	})

	t.Run("LinkCarriesAttrAndWcc", func(t *testing.T) {
		data, err := h.Readonly(ctx, ProcLink)
		require.NoError(t, err)
		assert.Equal(t, uint32(NFS3ErrRofs), readStatus(data))
		assert.Len(t, data, 16)
	})
}

func TestNull(t *testing.T) {
	h, _ := newTestHandler(t)

	data, err := h.Null(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}
